package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator validates documents against a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// Violation is a single schema failure at an instance location.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		path := v.Path
		if path == "" {
			path = "/"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", path, v.Message))
	}
	return fmt.Sprintf("schema validation failed:\n%s", strings.Join(lines, "\n"))
}

// NewValidator compiles schemaData under the given resource name.
func NewValidator(name string, schemaData []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schemaData)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate validates data against the schema.
// It expects data to be anything that can be marshaled to JSON.
func (v *Validator) Validate(data interface{}) error {
	// The schema expects plain JSON-like values, so round-trip through JSON.
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document to JSON for validation: %w", err)
	}

	var dataToValidate interface{}
	if err := json.Unmarshal(jsonData, &dataToValidate); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	if err := v.schema.Validate(dataToValidate); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			result := &ValidationError{}
			collectErrors(validationErr, &result.Violations)
			if len(result.Violations) == 0 {
				result.Violations = append(result.Violations, Violation{Message: validationErr.Message})
			}
			return result
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// collectErrors recursively collects the leaf validation errors
func collectErrors(err *jsonschema.ValidationError, violations *[]Violation) {
	if len(err.Causes) == 0 {
		if err.InstanceLocation != "" || err.Message != "" {
			*violations = append(*violations, Violation{Path: err.InstanceLocation, Message: err.Message})
		}
		return
	}
	for _, cause := range err.Causes {
		collectErrors(cause, violations)
	}
}
