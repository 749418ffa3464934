package common

import (
	"fmt"
	"io"
	"os"

	"careercoach/internal/errors"
	"careercoach/internal/formatters"
)

// CommandConfig holds the I/O settings shared by CLI commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
	Stdin        io.Reader
	Stdout       io.Writer
}

func (c CommandConfig) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

func (c CommandConfig) stdin() io.Reader {
	if c.Stdin == nil {
		return os.Stdin
	}
	return c.Stdin
}

// OutputHandler formats results and sends them to stdout or a file
type OutputHandler struct {
	logger        *errors.Logger
	fileProcessor *FileProcessor
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		logger:        logger,
		fileProcessor: NewFileProcessor(logger, 0),
	}
}

// HandleOutput formats the result and writes it to the configured destination
func (oh *OutputHandler) HandleOutput(result any, config CommandConfig) error {
	output, err := formatters.GlobalRegistry.Format(result, config.OutputFormat)
	if err != nil {
		return errors.NewInternalError("FORMAT_FAILED",
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err := io.WriteString(config.stdout(), output)
		return err
	}

	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}
	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return err
	}

	oh.logger.Info("Result written", "file", config.OutputFile, "format", config.OutputFormat)
	return nil
}
