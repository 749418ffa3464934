package common

import (
	"context"

	"careercoach/internal/ai"
	"careercoach/internal/errors"
	"careercoach/internal/formatters"
	"careercoach/internal/types"
)

// FlowRunFunc executes one flow against a raw JSON request body
type FlowRunFunc func(ctx context.Context, flow types.FlowName, body []byte) (*ai.FlowResult, error)

// RunFlowCommand reads the flow input, runs the flow once and writes the
// formatted output
func RunFlowCommand(
	ctx context.Context,
	logger *errors.Logger,
	config CommandConfig,
	maxInputSize int64,
	flow types.FlowName,
	args []string,
	run FlowRunFunc,
) error {
	fileProcessor := NewFileProcessor(logger, maxInputSize)
	outputHandler := NewOutputHandler(logger)

	body, err := fileProcessor.ReadInput(args, config.stdin())
	if err != nil {
		return err
	}

	logger.Info("Running flow", "flow", flow, "input_bytes", len(body), "output_format", config.OutputFormat)

	result, err := run(ctx, flow, body)
	if err != nil {
		return err
	}

	logDetails := []any{"flow", flow, "cached", result.Cached, "duration", result.Duration}
	if result.TokenUsage != nil {
		logDetails = append(logDetails,
			"input_tokens", result.TokenUsage.InputTokens,
			"output_tokens", result.TokenUsage.OutputTokens)
	}
	logger.Info("Flow completed", logDetails...)

	output, err := formatters.DecodeFlowOutput(flow, result.Output)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to decode flow output", err)
	}

	return outputHandler.HandleOutput(output, config)
}
