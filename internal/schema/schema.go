// Package schema validates decoded JSON values against per-endpoint JSON
// Schemas, compiled once at startup so the hot request path only runs the
// validator itself.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON Schema ready to validate decoded values.
type Schema struct {
	compiled *gojsonschema.Schema
}

// ValidationError carries a human-readable description of why a value
// failed validation. It is always returned as an error value, never raised
// as a panic, per this bridge's result-type approach to validation.
type ValidationError struct {
	Description string
}

func (e *ValidationError) Error() string {
	return e.Description
}

// Compile parses and compiles a JSON Schema document once. Call this at
// endpoint-registration time, not per request.
func Compile(schemaJSON []byte) (*Schema, error) {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks value (already decoded from JSON into a Go value, e.g.
// via encoding/json.Unmarshal into interface{}) against the compiled
// schema. It is pure and side-effect-free: the same (value, schema) pair
// always produces the same result.
func (s *Schema) Validate(value interface{}) *ValidationError {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return &ValidationError{Description: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		descriptions = append(descriptions, describe(re))
	}
	return &ValidationError{Description: strings.Join(descriptions, "; ")}
}

// describe renders a gojsonschema validation error using the wording
// Python's jsonschema library produces, since that is the wire contract this
// bridge's clients were written against (e.g. "'a string' is not of type
// 'object'"). gojsonschema's own Description() uses different phrasing for
// the same failure, so the well-known error types are reworded explicitly;
// anything else falls back to gojsonschema's description.
func describe(re gojsonschema.ResultError) string {
	switch re.Type() {
	case "invalid_type":
		expected, _ := re.Details()["expected"].(string)
		return fmt.Sprintf("'%v' is not of type '%s'", re.Value(), expected)
	case "required":
		property, _ := re.Details()["property"].(string)
		return fmt.Sprintf("'%s' is a required property", property)
	case "additional_property_not_allowed":
		property, _ := re.Details()["property"].(string)
		return fmt.Sprintf("Additional properties are not allowed ('%s' was unexpected)", property)
	default:
		return re.Description()
	}
}
