package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"careercoach/internal/ai"
	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/identity"
	"careercoach/internal/types"

	"github.com/stretchr/testify/require"
)

const (
	adminToken  = "tok_admin"
	memberToken = "tok_member"
)

// fakeIdentity answers session checks from a token table
type fakeIdentity struct {
	mu         sync.Mutex
	sessions   map[string]*identity.Session
	verifyErr  error
	users      []identity.User
	listErr    error
	listCalls  int
	lastParams identity.ListUsersParams
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		sessions: map[string]*identity.Session{
			adminToken:  {UserID: "user_admin", Role: "admin"},
			memberToken: {UserID: "user_member", Role: "member"},
		},
		users: []identity.User{{
			ID:        "user_1",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			ImageURL:  "https://img.example.com/ada.png",
			CreatedAt: time.Unix(1700000000, 0),
		}},
	}
}

func (f *fakeIdentity) VerifySession(_ context.Context, token string) (*identity.Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if token == "" {
		return nil, errors.NewUnauthenticatedError(errors.ErrCodeMissingSession, "missing", identity.ErrSessionInactive)
	}
	session, ok := f.sessions[token]
	if !ok {
		return nil, errors.NewUnauthenticatedError(errors.ErrCodeSessionInactive, "inactive", identity.ErrSessionInactive)
	}
	return session, nil
}

func (f *fakeIdentity) ListUsers(_ context.Context, params identity.ListUsersParams) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastParams = params
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

// fakeProvider returns a canned model reply
type fakeProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeProvider) Generate(context.Context, ai.GenerateRequest) ([]byte, *ai.TokenUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte(f.reply), &ai.TokenUsage{InputTokens: 4, OutputTokens: 6, TotalTokens: 10}, nil
}

func (f *fakeProvider) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake-model", Available: f.err == nil}
}

func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeHistory keeps generations in memory
type fakeHistory struct {
	mu          sync.Mutex
	generations []types.Generation
	recordErr   error
	pingErr     error
}

func (h *fakeHistory) Record(_ context.Context, userID string, flow types.FlowName, input, output json.RawMessage) (*types.Generation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recordErr != nil {
		return nil, h.recordErr
	}
	g := types.Generation{ID: "gen_1", UserID: userID, Flow: flow, Input: input, Output: output, CreatedAt: time.Now()}
	h.generations = append(h.generations, g)
	return &g, nil
}

func (h *fakeHistory) ListByUser(_ context.Context, userID string, flow types.FlowName, limit int) ([]types.Generation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []types.Generation{}
	for _, g := range h.generations {
		if g.UserID == userID && (flow == "" || g.Flow == flow) {
			out = append(out, g)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *fakeHistory) Ping(context.Context) error { return h.pingErr }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "localhost",
			Port:           "0",
			MaxRequestSize: 1024,
		},
		Auth: config.AuthConfig{
			ProviderURL:       "https://identity.example.com",
			SecretKey:         "sk_test",
			AdminRole:         "admin",
			SessionCookie:     "__session",
			ProtectedPrefixes: config.DefaultProtectedPrefixes,
		},
		History: config.HistoryConfig{RecentLimit: 10},
	}
}

type testEnv struct {
	server   *Server
	identity *fakeIdentity
	provider *fakeProvider
	handler  http.Handler
}

func newTestEnv(t *testing.T, cfg *config.Config, history HistoryStore) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	idp := newFakeIdentity()
	provider := &fakeProvider{reply: `{"reply":"Lead with impact.","followUpSuggested":false}`}
	coach := ai.NewCoachWithProviders(map[types.FlowName]ai.Provider{types.FlowChat: provider}, errors.Nop())

	s := NewServer(cfg, "test", Dependencies{Coach: coach, Identity: idp, History: history}, errors.Nop())
	t.Cleanup(s.cleanup)

	return &testEnv{server: s, identity: idp, provider: provider, handler: s.Handler()}
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
