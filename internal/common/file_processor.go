package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"careercoach/internal/errors"
	"careercoach/internal/utils"
)

// FileProcessor reads flow input documents and writes results
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64 // 0 means unlimited
}

// NewFileProcessor creates a file processor that rejects inputs over maxSize bytes
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadInput reads the JSON request from the named file, or from stdin when
// no file is given or the name is "-"
func (fp *FileProcessor) ReadInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return fp.read("stdin", stdin)
	}

	filename := args[0]
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsJSONFile(filename) {
		fp.logger.Warn("Input file does not have a .json extension", "filename", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	return fp.read(filename, file)
}

func (fp *FileProcessor) read(name string, r io.Reader) ([]byte, error) {
	if fp.maxSize > 0 {
		r = io.LimitReader(r, fp.maxSize+1)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read input from %s", name), err)
	}

	if fp.maxSize > 0 && int64(len(content)) > fp.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Input from %s exceeds the %s limit", name, utils.FormatFileSize(fp.maxSize)), nil)
	}

	fp.logger.Debug("Read flow input", "source", name, "size", utils.FormatFileSize(int64(len(content))))
	return content, nil
}

// WriteFile writes content to a file, creating its directory
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
