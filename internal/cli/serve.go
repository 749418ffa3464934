package cli

import (
	"fmt"

	"careercoach/internal/config"
	"careercoach/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the AI flows and the admin user listing.

Available endpoints:
- POST /api/ai/{flow}: Run one flow (session required)
- GET /api/admin/users: List users (admin session required)
- GET /dashboard: Signed-in user's recent generations
- GET /dashboard/history: Generation history, filterable by flow
- GET /health: Health check endpoint
- GET /stats: Server statistics (API key required when configured)

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
		"ca-file":   &cfg.Server.TLS.CAFile,
	}
	for name, target := range overrides {
		if !flags.Changed(name) {
			continue
		}
		if value, err := flags.GetString(name); err == nil {
			*target = value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd.Flags(), cfg)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		return fmt.Errorf("invalid auth configuration: %w", err)
	}

	if cfg.AI.PromptReload.Enabled {
		watcher, err := cfg.Prompts.WatchPrompts(cfg.AI.PromptReload.DebounceDelay, logger)
		if err != nil {
			return fmt.Errorf("failed to watch prompt files: %w", err)
		}
		if watcher != nil {
			defer closeQuietly(logger, "prompt watcher", watcher.Stop)
		}
	}

	deps := server.Dependencies{}

	redis := openCache(ctx, cfg, logger)
	if redis != nil {
		defer closeQuietly(logger, "redis", redis.Close)
		deps.Cache = redis
	}

	history, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open generation history: %w", err)
	}
	if history != nil {
		defer closeQuietly(logger, "history", history.Close)
		deps.History = history
	}

	coach, err := newCoach(cfg, logger, redis)
	if err != nil {
		return fmt.Errorf("failed to create AI coach: %w", err)
	}
	defer closeQuietly(logger, "ai providers", coach.Close)
	deps.Coach = coach

	deps.Identity = newIdentityClient(cfg, logger, redis)

	return server.NewServer(cfg, Version, deps, logger).Start()
}
