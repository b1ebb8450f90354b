package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildTicketJSONSchema returns the JSON Schema a field reply must satisfy.
// Every field is optional; when categories are given the category is an enum.
func BuildTicketJSONSchema(categories []string) map[string]any {
	props := map[string]any{
		"amount":       map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 100000},
		"currency":     map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
		"date":         map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"vendor":       map[string]any{"type": "string", "minLength": 1, "maxLength": 100},
		"category":     map[string]any{"type": "string", "minLength": 1},
		"country_code": map[string]any{"type": "string", "pattern": `^[A-Z]{2}$`},
		"city":         map[string]any{"type": "string", "minLength": 1},
		"confidence":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	if len(categories) > 0 {
		props["category"] = map[string]any{
			"type": "string",
			"enum": categories,
		}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// Validator is a compiled schema, safe for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator(schemaMap map[string]any) (*Validator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks data against the compiled schema.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateJSONAgainstSchema compiles schemaMap and validates data in one go.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	v, err := NewValidator(schemaMap)
	if err != nil {
		return err
	}
	return v.Validate(data)
}
