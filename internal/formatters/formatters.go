package formatters

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"careercoach/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the registry the CLI formats output with
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for dataType := range documents {
		registry.RegisterFormatter("text", dataType, &TextFormatter{dataType: dataType})
		registry.RegisterFormatter("markdown", dataType, &MarkdownFormatter{dataType: dataType})
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	t := reflect.TypeOf(data)
	if t == nil {
		return "any"
	}
	if t.Kind() == reflect.Slice && t.Elem().Name() != "" {
		return "[]" + t.Elem().Name()
	}
	if t.Name() == "" {
		return "any"
	}
	return t.Name()
}

// DecodeFlowOutput decodes a flow's raw JSON output into its typed record
// so the text and markdown formatters can render it
func DecodeFlowOutput(flow types.FlowName, raw json.RawMessage) (any, error) {
	decode, ok := flowOutputs[flow]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", flow)
	}
	return decode(raw)
}

var flowOutputs = map[types.FlowName]func(json.RawMessage) (any, error){
	types.FlowImproveResume:      decodeAs[types.ImproveResumeOutput],
	types.FlowCoverLetter:        decodeAs[types.CoverLetterOutput],
	types.FlowRoadmap:            decodeAs[types.RoadmapOutput],
	types.FlowChat:               decodeAs[types.ChatOutput],
	types.FlowAgentDescription:   decodeAs[types.AgentDescriptionOutput],
	types.FlowJSONConvert:        decodeAs[types.JSONConvertOutput],
	types.FlowAnalyzeResume:      decodeAs[types.AnalyzeResumeOutput],
	types.FlowInterviewQuestions: decodeAs[types.InterviewQuestionsOutput],
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// TextFormatter renders a document as plain text with === headings
type TextFormatter struct{ dataType string }

func (tf *TextFormatter) Format(data any) (string, error) {
	doc, err := documentFor(tf.dataType, data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	for i, s := range doc.Sections {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "=== %s ===\n", strings.ToUpper(s.Title))
		output.WriteString(strings.TrimSpace(s.Body))
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (tf *TextFormatter) SupportedType() string {
	return tf.dataType
}

// MarkdownFormatter renders a document as markdown
type MarkdownFormatter struct{ dataType string }

func (mf *MarkdownFormatter) Format(data any) (string, error) {
	doc, err := documentFor(mf.dataType, data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# %s\n", doc.Title)
	for _, s := range doc.Sections {
		fmt.Fprintf(&output, "\n## %s\n\n", s.Title)
		if s.Code != "" {
			fmt.Fprintf(&output, "```%s\n%s\n```\n", s.Code, strings.TrimSpace(s.Body))
			continue
		}
		output.WriteString(strings.TrimSpace(s.Body))
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (mf *MarkdownFormatter) SupportedType() string {
	return mf.dataType
}
