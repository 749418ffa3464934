package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"careercoach/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 read paths (e.g. "secret/data/careercoach/gemini").
// An empty path skips that secret.
type VaultSecrets struct {
	APIKeys     string `mapstructure:"apiKeys"`     // key "keys", comma separated
	GeminiKey   string `mapstructure:"geminiKey"`   // key "api_key"
	IdentityKey string `mapstructure:"identityKey"` // key "secret_key"
	Database    string `mapstructure:"database"`    // key "dsn"
	Redis       string `mapstructure:"redis"`       // key "password"
	TLSCerts    string `mapstructure:"tlsCerts"`    // keys "cert", "key", "ca"
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a Vault client and checks that Vault is reachable.
// It returns nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", config.Address)
	}

	logger.Info("Successfully connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"cluster_name", health.ClusterName)

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, err := extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}
	version, err := extractSecretVersion(secret, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

func extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

func extractSecretVersion(secret *api.Secret, path string) (int64, error) {
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	return parseVersionValue(versionRaw, path)
}

// parseVersionValue parses the version, which the JSON decoder may hand
// back as a number or a json.Number string
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case fmt.Stringer:
		return parseVersionValue(v.String(), path)
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	vc.logger.Debug("String secret retrieved from Vault",
		"path", path,
		"key", key,
		"masked_value", maskSecret(strValue))

	return strValue, nil
}

func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case len(s) > 0:
		return "****"
	default:
		return ""
	}
}

// stringSecret binds one string secret in Vault to the config field it fills
type stringSecret struct {
	name  string
	path  string
	key   string
	apply func(c *Config, value string)
}

func (c *Config) stringSecrets() []stringSecret {
	s := c.Vault.Secrets
	return []stringSecret{
		{"server API keys", s.APIKeys, "keys", func(c *Config, v string) { c.Server.APIKeys = splitAndTrim(v) }},
		{"Gemini API key", s.GeminiKey, "api_key", applyGeminiKeyToConfig},
		{"identity provider secret key", s.IdentityKey, "secret_key", func(c *Config, v string) { c.Auth.SecretKey = v }},
		{"database DSN", s.Database, "dsn", func(c *Config, v string) { c.History.DSN = v }},
		{"Redis password", s.Redis, "password", func(c *Config, v string) { c.Cache.Password = v }},
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	return config.applySecretsFrom(client, logger)
}

func (c *Config) applySecretsFrom(client *VaultClient, logger *errors.Logger) error {
	for _, s := range c.stringSecrets() {
		if s.path == "" {
			continue
		}
		value, err := client.GetStringSecret(s.path, s.key)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", s.name, err)
		}
		if value == "" {
			logger.Warn("Empty secret in Vault", "secret", s.name, "path", s.path)
			continue
		}
		s.apply(c, value)
		logger.Info("Secret loaded from Vault", "secret", s.name)
	}

	if path := c.Vault.Secrets.TLSCerts; path != "" {
		tlsData, err := client.GetSecretV2(path)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		if err := validateTLSDeprecatedFields(tlsData); err != nil {
			return err
		}
		count := loadTLSCertificateContent(c, tlsData, logger)
		logger.Info("TLS certificates loaded from Vault", "certificates_loaded", count)
	}

	logger.Info("Successfully completed applying secrets from Vault")
	return nil
}

// applyGeminiKeyToConfig sets the global key and every flow override that has none
func applyGeminiKeyToConfig(config *Config, geminiKey string) {
	config.AI.APIKey = geminiKey
	for name, flow := range config.AI.Flows {
		if flow.APIKey == "" {
			flow.APIKey = geminiKey
			config.AI.Flows[name] = flow
		}
	}
}

// loadTLSCertificateContent copies PEM content from Vault data into the TLS config
func loadTLSCertificateContent(config *Config, tlsData *VaultSecret, logger *errors.Logger) int {
	count := 0
	count += loadSingleCertificate(tlsData, "cert", &config.Server.TLS.CertContent, logger)
	count += loadSingleCertificate(tlsData, "key", &config.Server.TLS.KeyContent, logger)
	count += loadSingleCertificate(tlsData, "ca", &config.Server.TLS.CAContent, logger)
	return count
}

func loadSingleCertificate(tlsData *VaultSecret, key string, target *string, logger *errors.Logger) int {
	if content, ok := tlsData.Data[key].(string); ok && content != "" {
		*target = content
		logger.Debug("TLS content loaded from Vault", "field", key, "content_length", len(content))
		return 1
	}
	return 0
}

// validateTLSDeprecatedFields rejects Vault secrets that point at files instead of holding PEM content
func validateTLSDeprecatedFields(tlsData *VaultSecret) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, hasField := tlsData.Data[field]; hasField {
			return fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}
	return nil
}
