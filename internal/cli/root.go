package cli

import (
	"context"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/spf13/cobra"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "careercoach",
	Short: "AI career coaching flows from the command line or over HTTP",
	Long: `careercoach runs schema-checked AI flows for job seekers: resume
improvement and analysis, cover letters, career roadmaps, interview
questions and a coaching chat. Each flow validates its input, makes one
AI call and validates the reply before anything is returned.

Use "careercoach serve" to expose the flows and the admin user listing
over HTTP behind session authentication.`,
	SilenceUsage: true,
}

// Execute runs the root command with the config and logger attached to ctx
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

func init() {
	rootCmd.AddCommand(flowCmd)
	rootCmd.AddCommand(flowsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
