package clientdriver

import "encoding/json"

// jsonSchema is the narrow slice of JSON Schema the driver needs to read
// back out of a tool's inputSchema: the operation enum and each other
// property's name/type.
type jsonSchema struct {
	Properties map[string]struct {
		Type string   `json:"type"`
		Enum []string `json:"enum,omitempty"`
	} `json:"properties"`
}

// SynthesizeArguments builds a plausible argument set for a tool call from
// its advertised input schema (§4.11 step 4): one value per schema property,
// chosen by name heuristic, plus the given operation.
func SynthesizeArguments(inputSchema json.RawMessage, operation string) map[string]any {
	args := map[string]any{"operation": operation}

	var schema jsonSchema
	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return args
	}

	for name, prop := range schema.Properties {
		if name == "operation" {
			continue
		}
		args[name] = synthesizeValue(name, prop.Type)
	}
	return args
}

// OperationsFromSchema reads the `operation` property's enum values out of a
// tool's input schema, the set of operations it advertises.
func OperationsFromSchema(inputSchema json.RawMessage) []string {
	var schema jsonSchema
	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return nil
	}
	if op, ok := schema.Properties["operation"]; ok {
		return op.Enum
	}
	return nil
}

func synthesizeValue(name, typ string) any {
	switch name {
	case "id":
		return "test-id-123"
	case "query":
		return "search query"
	case "location":
		return "London"
	case "domain":
		return "target.example.com"
	}

	switch typ {
	case "number", "integer":
		return 1
	case "boolean":
		return true
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return "test value"
	}
}
