package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for recorder.yml by reflecting
// Options. Sections other than the options (such as "logging") are allowed
// as additional properties.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		// Expand struct references instead of using $ref for a flat schema.
		ExpandedStruct: true,
		// Every option is optional; defaults fill the gaps.
		RequiredFromJSONSchemaTags: true,
		// Use YAML field names for property names
		FieldNameTag: "yaml",
	}

	schema := r.Reflect(&Options{})
	schema.Title = "Recorder Configuration"
	schema.Description = "Options for recording browser interactions and injecting generated tests."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}

// JSONSchemaExtend makes the nullable enumerations accept null.
func (Options) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	nullable := map[string][]interface{}{
		KeyDeviceEmulation: {nil, DeviceMobile, DeviceDesktop},
		KeyColorScheme:     {nil, ColorSchemeDark, ColorSchemeLight},
	}
	for key, values := range nullable {
		prop, ok := s.Properties.Get(key)
		if !ok || prop == nil {
			continue
		}
		prop.Type = ""
		prop.Enum = values
	}
}
