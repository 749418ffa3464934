package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks and derived defaults
func (c *Config) applyFallbacks() {
	c.applyListFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()

	if c.AI.APIKey == "" {
		// GEMINI_API_KEY is what the genai SDK itself reads
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyListFallbacks parses comma separated list variables that viper
// does not split on its own
func (c *Config) applyListFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CAREERCOACH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
	if prefixes := os.Getenv("CAREERCOACH_AUTH_PROTECTEDPREFIXES"); prefixes != "" {
		c.Auth.ProtectedPrefixes = splitAndTrim(prefixes)
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a service instance ID from the hostname
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// sensitiveEnvVar reports whether the value of an environment variable must be masked
func sensitiveEnvVar(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") ||
		strings.Contains(lower, "password") ||
		strings.Contains(lower, "dsn") ||
		strings.Contains(lower, "token")
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CAREERCOACH_AI_APIKEY",
		"CAREERCOACH_AI_MODEL",
		"CAREERCOACH_SERVER_PORT",
		"CAREERCOACH_SERVER_HOST",
		"CAREERCOACH_AUTH_PROVIDERURL",
		"CAREERCOACH_AUTH_SECRETKEY",
		"CAREERCOACH_CACHE_ENABLED",
		"CAREERCOACH_HISTORY_DSN",
		"CAREERCOACH_APP_LOGLEVEL",
		"CAREERCOACH_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if sensitiveEnvVar(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Identity provider: %s", c.Auth.ProviderURL)
	log.Printf("[CONFIG] Protected prefixes: %v", c.Auth.ProtectedPrefixes)
	log.Printf("[CONFIG] Cache Enabled: %t, History Enabled: %t", c.Cache.Enabled, c.History.Enabled)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	if len(c.AI.Flows) > 0 {
		log.Println("[CONFIG] === Flow-Specific AI Overrides ===")
		for name, flow := range c.AI.Flows {
			log.Printf("[CONFIG] %s - Provider: %s, Model: %s", name, flow.Provider, flow.Model)
		}
	}

	log.Println("[CONFIG] =====================================")
}
