package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateInput checks a tool input against the tool's JSON Schema. A nil
// or empty schema accepts anything.
func ValidateInput(schemaJSON json.RawMessage, input json.RawMessage) error {
	if len(schemaJSON) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool://input", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("invalid tool schema: %w", err)
	}
	schema, err := compiler.Compile("tool://input")
	if err != nil {
		return fmt.Errorf("invalid tool schema: %w", err)
	}

	var value any
	if len(input) == 0 {
		value = map[string]any{}
	} else if err := json.Unmarshal(input, &value); err != nil {
		return fmt.Errorf("tool input is not valid JSON: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("tool input failed schema validation: %w", err)
	}
	return nil
}
