package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"careercoach/internal/types"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		AI:     AIConfig{APIKey: "test-key", Timeout: time.Minute},
		Server: ServerConfig{Port: "8080", MaxRequestSize: 1024},
		App:    AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		Auth: AuthConfig{
			ProviderURL:       "https://id.example.com",
			SecretKey:         "sk_test",
			RoleClaim:         "metadata.role",
			AdminRole:         "admin",
			ProtectedPrefixes: DefaultProtectedPrefixes,
		},
	}
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 0, cfg.AI.MaxRetries)
	assert.Equal(t, "__session", cfg.Auth.SessionCookie)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
	assert.Equal(t, "metadata.role", cfg.Auth.RoleClaim)
	assert.Equal(t, DefaultProtectedPrefixes, cfg.Auth.ProtectedPrefixes)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
}

func TestFlowConfigFallsBackToGlobal(t *testing.T) {
	retries := 2
	cfg := Config{
		AI: AIConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			Timeout:          30 * time.Second,
			APIKey:           "global-key",
			Temperature:      0.7,
			UseSystemPrompts: true,
			CircuitBreaker:   CircuitBreakerConfig{Enabled: true, MinRequests: 5},
			Flows: map[string]OperationAIConfig{
				"chat": {Model: "gemini-2.5-pro", MaxRetries: &retries},
			},
		},
	}

	chat := cfg.FlowConfig(types.FlowChat)
	assert.Equal(t, "gemini-2.5-pro", chat.Model)
	assert.Equal(t, "global-key", chat.APIKey)
	assert.Equal(t, 2, *chat.MaxRetries)
	assert.Equal(t, 30*time.Second, *chat.Timeout)
	require.NotNil(t, chat.CircuitBreaker)
	assert.Equal(t, uint32(5), chat.CircuitBreaker.MinRequests)

	roadmap := cfg.FlowConfig(types.FlowRoadmap)
	assert.Equal(t, "gemini-2.0-flash", roadmap.Model)
	assert.Equal(t, 0, *roadmap.MaxRetries)
	assert.True(t, *roadmap.UseSystemPrompts)
	assert.InDelta(t, 0.7, *roadmap.Temperature, 0.001)

	// the fallback must not alias the global settings
	*roadmap.Timeout = time.Second
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.AI.APIKey = "" }, errorMsg: "AI API key is required"},
		{name: "negative retries", mutate: func(c *Config) { c.AI.MaxRetries = -1 }, errorMsg: "maxRetries"},
		{
			name:     "unknown flow override",
			mutate:   func(c *Config) { c.AI.Flows = map[string]OperationAIConfig{"tailor": {}} },
			errorMsg: "unknown flow in ai.flows: tailor",
		},
		{name: "bad format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, errorMsg: "invalid default format"},
		{
			name:     "cache without address",
			mutate:   func(c *Config) { c.Cache = CacheConfig{Enabled: true} },
			errorMsg: "cache.address",
		},
		{
			name:     "history without dsn",
			mutate:   func(c *Config) { c.History = HistoryConfig{Enabled: true} },
			errorMsg: "history.dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateAuth(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.ValidateAuth())

	cfg.Auth.SecretKey = ""
	assert.ErrorContains(t, cfg.ValidateAuth(), "auth.secretKey")

	cfg = validConfig()
	cfg.Auth.ProtectedPrefixes = []string{"dashboard"}
	assert.ErrorContains(t, cfg.ValidateAuth(), "must start with '/'")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAREERCOACH_TEST_FROM_FILE=from-file\nCAREERCOACH_TEST_PRESET=from-file\n"), 0600))

	t.Setenv("CAREERCOACH_TEST_PRESET", "from-env")
	t.Setenv("CAREERCOACH_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("CAREERCOACH_TEST_FROM_FILE"))

	loaded := loadEnvFiles([]string{envFile, filepath.Join(dir, "missing.env")})

	assert.Equal(t, 1, loaded)
	assert.Equal(t, "from-file", os.Getenv("CAREERCOACH_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", os.Getenv("CAREERCOACH_TEST_PRESET"))
}

func TestEnvFileCandidates(t *testing.T) {
	t.Setenv("CAREERCOACH_ENV_FILES", " a.env, ,b.env ")
	assert.Equal(t, []string{"a.env", "b.env"}, envFileCandidates())
}
