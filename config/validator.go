package config

import (
	"github.com/grovetools/recorder/schema"
)

// SchemaValidator validates raw configuration documents against the schema
// generated from Options.
type SchemaValidator struct {
	validator *schema.Validator
}

// NewSchemaValidator generates and compiles the options schema.
func NewSchemaValidator() (*SchemaValidator, error) {
	data, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	validator, err := schema.NewValidator("recorder.json", data)
	if err != nil {
		return nil, err
	}
	return &SchemaValidator{validator: validator}, nil
}

// Validate validates configuration data against the schema.
func (v *SchemaValidator) Validate(configData interface{}) error {
	return v.validator.Validate(configData)
}
