package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"careercoach/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUsersStatus(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		listErr   error
		verifyErr error
		want      int
		listed    bool
	}{
		{name: "no session", want: http.StatusUnauthorized},
		{name: "inactive session", token: "tok_expired", want: http.StatusUnauthorized},
		{name: "non admin", token: memberToken, want: http.StatusForbidden},
		{name: "admin", token: adminToken, want: http.StatusOK, listed: true},
		{
			name:    "provider failure",
			token:   adminToken,
			listErr: errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed, "users endpoint returned 503", nil),
			want:    http.StatusInternalServerError,
			listed:  true,
		},
		{
			name:      "session check outage",
			token:     adminToken,
			verifyErr: errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed, "introspection down", nil),
			want:      http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)
			env.identity.listErr = tt.listErr
			env.identity.verifyErr = tt.verifyErr

			rec := env.do(http.MethodGet, "/api/admin/users", tt.token, "")

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.listed, env.identity.listCalls == 1)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAdminUsersPublicFields(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodGet, "/api/admin/users", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)

	assert.Equal(t, map[string]any{
		"id":        "user_1",
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"imageUrl":  "https://img.example.com/ada.png",
		"createdAt": "2023-11-14T22:13:20Z",
	}, users[0])
}

func TestAdminUsersFailureHidesProviderDetails(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.identity.listErr = errors.NewNetworkError(errors.ErrCodeIdentityProviderFailed, "secret upstream detail", nil)

	rec := env.do(http.MethodGet, "/api/admin/users", adminToken, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret upstream detail")
}

func TestAdminUsersEmptyList(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.identity.users = nil

	rec := env.do(http.MethodGet, "/api/admin/users", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminUsersPagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 0, 0},
		{"?limit=25&offset=50", 25, 50},
		{"?limit=abc&offset=-3", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)

			rec := env.do(http.MethodGet, "/api/admin/users"+tt.query, adminToken, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantLimit, env.identity.lastParams.Limit)
			assert.Equal(t, tt.wantOffset, env.identity.lastParams.Offset)
		})
	}
}

func TestAdminUsersMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(http.MethodPost, "/api/admin/users", adminToken, `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, env.identity.listCalls)
}

func TestAdminUsersSessionCookie(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req := newRequest(http.MethodGet, "/api/admin/users")
	req.AddCookie(&http.Cookie{Name: "__session", Value: adminToken})
	rec := serve(env.handler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
