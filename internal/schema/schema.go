package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"careercoach/internal/errors"

	"github.com/xeipuuv/gojsonschema"
)

// FieldType is the semantic type of a schema field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
)

// Field declares one named member of a request or response record.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
}

// Schema is a flat record declaration shared by request validation,
// response validation and the AI provider's structured output config.
type Schema struct {
	Name        string
	Description string
	Fields      []Field

	once     sync.Once
	compiled *gojsonschema.Schema
	compErr  error
}

// New builds a schema from its fields.
func New(name, description string, fields ...Field) *Schema {
	return &Schema{Name: name, Description: description, Fields: fields}
}

// RequiredString declares a required, non-blank string field.
func RequiredString(name, description string) Field {
	return Field{Name: name, Type: TypeString, Description: description, Required: true}
}

// OptionalString declares an optional string field.
func OptionalString(name, description string) Field {
	return Field{Name: name, Type: TypeString, Description: description}
}

// RequiredBool declares a required boolean field.
func RequiredBool(name, description string) Field {
	return Field{Name: name, Type: TypeBoolean, Description: description, Required: true}
}

// RequiredFields returns the names of the required fields in declaration order.
func (s *Schema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// JSONSchema renders the declaration as a draft-07 JSON Schema document.
// Required strings carry a non-whitespace pattern so blank values fail.
func (s *Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		prop := map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
		if f.Required && f.Type == TypeString {
			prop["pattern"] = `\S`
		}
		properties[f.Name] = prop
	}

	doc := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      s.Name,
		"type":       "object",
		"properties": properties,
	}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if required := s.RequiredFields(); len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func (s *Schema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.compiled, s.compErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
	})
	return s.compiled, s.compErr
}

// Validate checks a Go value (typically a request or response struct)
// against the schema.
func (s *Schema) Validate(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s: value is not serializable", s.Name), err)
	}
	return s.ValidateJSON(raw)
}

// ValidateJSON checks a raw JSON document against the schema.
func (s *Schema) ValidateJSON(raw []byte) error {
	compiled, err := s.compile()
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("schema %s does not compile", s.Name), err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s: body is not valid JSON", s.Name), err)
	}
	if result.Valid() {
		return nil
	}

	fields := fieldErrors(result.Errors())
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return errors.NewValidationError(errors.ErrCodeSchemaViolation,
		fmt.Sprintf("%s failed validation: %s", s.Name, strings.Join(names, ", ")), nil).
		WithContext("schema", s.Name).
		WithFields(fields)
}

func fieldErrors(results []gojsonschema.ResultError) []errors.FieldError {
	fields := make([]errors.FieldError, 0, len(results))
	for _, re := range results {
		field := re.Field()
		message := re.Description()

		switch re.Type() {
		case "required":
			if prop, ok := re.Details()["property"].(string); ok {
				field = prop
			}
			message = "is required"
		case "pattern":
			message = "must not be empty"
		case "invalid_type":
			message = fmt.Sprintf("must be a %v", re.Details()["expected"])
		}

		fields = append(fields, errors.FieldError{Field: field, Message: message})
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return fields
}
