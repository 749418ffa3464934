package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"careercoach/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves sys/health and KVv2 reads from an in-memory map keyed by path
func fakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false,"version":"1.15.0","cluster_name":"test"}`))
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{
		"secret/data/careercoach/gemini":   {"api_key": "vault-gemini-key"},
		"secret/data/careercoach/identity": {"secret_key": "sk_live_vault"},
		"secret/data/careercoach/db":       {"dsn": "postgres://coach@db/careercoach"},
		"secret/data/careercoach/redis":    {"password": "redis-pass"},
		"secret/data/careercoach/api":      {"keys": "k1, k2"},
		"secret/data/careercoach/tls":      {"cert": "CERT", "key": "KEY"},
	})

	cfg := &Config{
		AI: AIConfig{
			APIKey: "env-key",
			Flows: map[string]OperationAIConfig{
				"chat":    {},
				"roadmap": {APIKey: "roadmap-key"},
			},
		},
		Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "root",
			Secrets: VaultSecrets{
				APIKeys:     "secret/data/careercoach/api",
				GeminiKey:   "secret/data/careercoach/gemini",
				IdentityKey: "secret/data/careercoach/identity",
				Database:    "secret/data/careercoach/db",
				Redis:       "secret/data/careercoach/redis",
				TLSCerts:    "secret/data/careercoach/tls",
			},
		},
	}

	require.NoError(t, ApplyVaultSecrets(cfg, errors.Nop()))

	assert.Equal(t, "vault-gemini-key", cfg.AI.APIKey)
	assert.Equal(t, "vault-gemini-key", cfg.AI.Flows["chat"].APIKey)
	assert.Equal(t, "roadmap-key", cfg.AI.Flows["roadmap"].APIKey)
	assert.Equal(t, "sk_live_vault", cfg.Auth.SecretKey)
	assert.Equal(t, "postgres://coach@db/careercoach", cfg.History.DSN)
	assert.Equal(t, "redis-pass", cfg.Cache.Password)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplyVaultSecretsMissingSecret(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{})

	cfg := &Config{Vault: VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "root",
		Secrets: VaultSecrets{IdentityKey: "secret/data/careercoach/identity"},
	}}

	err := ApplyVaultSecrets(cfg, errors.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity provider secret key")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "env-key"}}
	require.NoError(t, ApplyVaultSecrets(cfg, errors.Nop()))
	assert.Equal(t, "env-key", cfg.AI.APIKey)
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64", input: int64(42), expected: 42},
		{name: "float64", input: float64(42), expected: 42},
		{name: "string", input: "42", expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "invalid string", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"})
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestExtractSecretData(t *testing.T) {
	data, err := extractSecretData(&api.Secret{Data: map[string]any{
		"data": map[string]any{"api_key": "abc"},
	}}, "secret/data/test")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"api_key": "abc"}, data)

	_, err = extractSecretData(&api.Secret{Data: map[string]any{"data": "flat"}}, "secret/test")
	assert.ErrorContains(t, err, "not in KVv2 format")
}

func TestValidateTLSDeprecatedFields(t *testing.T) {
	assert.NoError(t, validateTLSDeprecatedFields(&VaultSecret{Data: map[string]any{"cert": "c", "key": "k"}}))

	err := validateTLSDeprecatedFields(&VaultSecret{Data: map[string]any{"key_file": "/k"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_file")
	assert.Contains(t, err.Error(), "no longer supported")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk_l****ault", maskSecret("sk_live_vault"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
