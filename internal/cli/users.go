package cli

import (
	"careercoach/internal/common"
	"careercoach/internal/identity"

	"github.com/spf13/cobra"
)

var (
	usersLimit        int
	usersOffset       int
	usersOutputFile   string
	usersOutputFormat string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users from the identity provider",
	Long: `List users registered with the identity provider, using the configured
secret key. Only the public fields are shown: id, first and last name,
primary email, image URL and creation time.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if err := cfg.ValidateAuth(); err != nil {
			return err
		}
		format, err := common.ResolveOutputFormat(usersOutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		usersOutputFormat = format
		return nil
	},
	RunE: runUsers,
}

func init() {
	usersCmd.Flags().IntVar(&usersLimit, "limit", identity.DefaultPageSize, "Maximum number of users to return")
	usersCmd.Flags().IntVar(&usersOffset, "offset", 0, "Number of users to skip")
	usersCmd.Flags().StringVarP(&usersOutputFile, "output", "o", "", "Output file (default: stdout)")
	usersCmd.Flags().StringVarP(&usersOutputFormat, "format", "f", "", "Output format: json, text, markdown (default from config)")
	registerFormatCompletion(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	client := newIdentityClient(cfg, logger, nil)
	users, err := client.ListUsers(ctx, identity.ListUsersParams{Limit: usersLimit, Offset: usersOffset})
	if err != nil {
		return err
	}
	logger.Info("Fetched users", "count", len(users), "limit", usersLimit, "offset", usersOffset)

	return common.NewOutputHandler(logger).HandleOutput(identity.PublicUsers(users), common.CommandConfig{
		OutputFile:   usersOutputFile,
		OutputFormat: usersOutputFormat,
		Stdout:       cmd.OutOrStdout(),
	})
}
