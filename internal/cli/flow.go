package cli

import (
	"fmt"
	"strings"

	"careercoach/internal/common"
	"careercoach/internal/errors"
	"careercoach/internal/types"

	"github.com/spf13/cobra"
)

var (
	flowOutputFile   string
	flowOutputFormat string
)

var flowCmd = &cobra.Command{
	Use:   "flow <name> [input.json]",
	Short: "Run one AI flow",
	Long: `Run one AI flow against a JSON request read from a file or stdin.

The request is checked against the flow's input schema, sent to the AI
model once and the reply is checked against the output schema. Run
"careercoach flows" to see every flow and its fields.

Examples:
  careercoach flow chat chat.json
  echo '{"message":"How do I prepare for a panel interview?"}' | careercoach flow chat -f text
  careercoach flow roadmap roadmap.json --format markdown -o roadmap.md`,
	Args: cobra.RangeArgs(1, 2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}
		return flowNames(), cobra.ShellCompDirectiveNoFileComp
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		format, err := common.ResolveOutputFormat(flowOutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		flowOutputFormat = format
		return nil
	},
	RunE: runFlow,
}

func init() {
	flowCmd.Flags().StringVarP(&flowOutputFile, "output", "o", "", "Output file (default: stdout)")
	flowCmd.Flags().StringVarP(&flowOutputFormat, "format", "f", "", "Output format: json, text, markdown (default from config)")
	registerFormatCompletion(flowCmd)
}

func runFlow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	flow, ok := types.ParseFlowName(args[0])
	if !ok {
		return errors.NewValidationError(errors.ErrCodeUnknownFlow,
			fmt.Sprintf("unknown flow %q (available: %s)", args[0], strings.Join(flowNames(), ", ")), nil)
	}

	redis := openCache(ctx, cfg, logger)
	if redis != nil {
		defer closeQuietly(logger, "redis", redis.Close)
	}

	coach, err := newCoach(cfg, logger, redis)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "ai providers", coach.Close)

	commandConfig := common.CommandConfig{
		OutputFile:   flowOutputFile,
		OutputFormat: flowOutputFormat,
		Stdin:        cmd.InOrStdin(),
		Stdout:       cmd.OutOrStdout(),
	}
	return common.RunFlowCommand(ctx, logger, commandConfig, cfg.App.MaxFileSize, flow, args[1:], coach.Run)
}

func flowNames() []string {
	names := make([]string, len(types.AllFlows))
	for i, f := range types.AllFlows {
		names[i] = string(f)
	}
	return names
}

func registerFormatCompletion(cmd *cobra.Command) {
	err := cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "text", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})
	if err != nil {
		panic(err)
	}
}
