package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockHistory(t *testing.T) (*History, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := New(db)
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func TestEnsureSchema(t *testing.T) {
	h, mock := newMockHistory(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS generations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, h.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	h, mock := newMockHistory(t)

	input := json.RawMessage(`{"message":"hi"}`)
	output := json.RawMessage(`{"reply":"hello","followUpSuggested":false}`)

	mock.ExpectExec(`INSERT INTO generations`).
		WithArgs(
			sqlmock.AnyArg(), // id
			"user_1",
			"chat",
			[]byte(input),
			[]byte(output),
			fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	g, err := h.Record(context.Background(), "user_1", types.FlowChat, input, output)
	require.NoError(t, err)

	_, err = uuid.Parse(g.ID)
	assert.NoError(t, err)
	assert.Equal(t, types.FlowChat, g.Flow)
	assert.Equal(t, fixedNow, g.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailure(t *testing.T) {
	h, mock := newMockHistory(t)

	mock.ExpectExec(`INSERT INTO generations`).WillReturnError(stderrors.New("connection refused"))

	_, err := h.Record(context.Background(), "user_1", types.FlowChat, json.RawMessage(`{}`), json.RawMessage(`{}`))
	require.Error(t, err)

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStorageFailed, appErr.Code)
}

func TestListByUser(t *testing.T) {
	columns := []string{"id", "user_id", "flow", "input", "output", "created_at"}

	tests := []struct {
		name  string
		flow  types.FlowName
		limit int
		query string
		args  []any
	}{
		{
			name:  "all flows",
			limit: 5,
			query: `SELECT id, user_id, flow, input, output, created_at FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
			args:  []any{"user_1", 5},
		},
		{
			name:  "one flow with default limit",
			flow:  types.FlowRoadmap,
			query: `SELECT id, user_id, flow, input, output, created_at FROM generations WHERE user_id = $1 AND flow = $2 ORDER BY created_at DESC LIMIT $3`,
			args:  []any{"user_1", "roadmap", 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newMockHistory(t)

			args := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				args = append(args, argEquals{a})
			}

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(columns).
					AddRow("0b0f6a52-0c1e-4d7e-9a53-3d1f8e0f2a11", "user_1", "roadmap",
						[]byte(`{"currentRole":"QA","targetRole":"SDET"}`),
						[]byte(`{"title":"t"}`), fixedNow))

			generations, err := h.ListByUser(context.Background(), "user_1", tt.flow, tt.limit)
			require.NoError(t, err)
			require.Len(t, generations, 1)
			assert.Equal(t, types.FlowRoadmap, generations[0].Flow)
			assert.JSONEq(t, `{"title":"t"}`, string(generations[0].Output))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// argEquals matches driver values loosely so ints match int64
type argEquals struct{ want any }

func (a argEquals) Match(v any) bool {
	switch want := a.want.(type) {
	case int:
		got, ok := v.(int64)
		return ok && got == int64(want)
	default:
		return v == a.want
	}
}

func TestListByUserEmpty(t *testing.T) {
	h, mock := newMockHistory(t)

	mock.ExpectQuery(`SELECT id, user_id, flow`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "flow", "input", "output", "created_at"}))

	generations, err := h.ListByUser(context.Background(), "nobody", "", 0)
	require.NoError(t, err)
	assert.NotNil(t, generations)
	assert.Empty(t, generations)
}

func TestOpenDisabled(t *testing.T) {
	h, err := Open(config.HistoryConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, h)
	assert.NoError(t, h.Close())
}
