package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS generations (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	flow       TEXT NOT NULL,
	input      JSONB NOT NULL,
	output     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS generations_user_created_idx ON generations (user_id, created_at DESC);
`

// History records flow results per user in PostgreSQL
type History struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to PostgreSQL. It returns nil when history is disabled.
func Open(cfg config.HistoryConfig) (*History, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to open postgres", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return New(db), nil
}

// New wraps an existing connection pool
func New(db *sql.DB) *History {
	return &History{db: db, now: time.Now}
}

// EnsureSchema creates the generations table if it does not exist
func (h *History) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, schemaDDL); err != nil {
		return errors.NewIOError(errors.ErrCodeStorageFailed, "failed to create history schema", err)
	}
	return nil
}

// Ping tests the database connection
func (h *History) Ping(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return errors.NewIOError(errors.ErrCodeStorageFailed, "postgres ping failed", err)
	}
	return nil
}

// Close closes the connection pool
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record stores one flow result and returns it with its new id
func (h *History) Record(ctx context.Context, userID string, flow types.FlowName, input, output json.RawMessage) (*types.Generation, error) {
	g := &types.Generation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Flow:      flow,
		Input:     input,
		Output:    output,
		CreatedAt: h.now().UTC(),
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO generations (id, user_id, flow, input, output, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		g.ID, g.UserID, string(g.Flow), []byte(g.Input), []byte(g.Output), g.CreatedAt)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to record generation", err).
			WithContext("flow", string(flow))
	}
	return g, nil
}

// ListByUser returns the user's newest generations. An empty flow matches all flows.
func (h *History) ListByUser(ctx context.Context, userID string, flow types.FlowName, limit int) ([]types.Generation, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, user_id, flow, input, output, created_at FROM generations WHERE user_id = $1`
	args := []any{userID}
	if flow != "" {
		query += ` AND flow = $2`
		args = append(args, string(flow))
	}
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to query generations", err)
	}
	defer func() { _ = rows.Close() }()

	generations := make([]types.Generation, 0, limit)
	for rows.Next() {
		var (
			g             types.Generation
			flowName      string
			input, output []byte
		)
		if err := rows.Scan(&g.ID, &g.UserID, &flowName, &input, &output, &g.CreatedAt); err != nil {
			return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to scan generation", err)
		}
		g.Flow = types.FlowName(flowName)
		g.Input = json.RawMessage(input)
		g.Output = json.RawMessage(output)
		generations = append(generations, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to read generations", err)
	}
	return generations, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
