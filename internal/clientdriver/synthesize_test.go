package clientdriver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productSchema = `{
	"type": "object",
	"properties": {
		"operation": {"type": "string", "enum": ["SEARCH", "GET", "LIST"]},
		"query": {"type": "string"},
		"id": {"type": "string"},
		"field": {"type": "string"}
	}
}`

func TestOperationsFromSchema(t *testing.T) {
	ops := OperationsFromSchema(json.RawMessage(productSchema))
	assert.Equal(t, []string{"SEARCH", "GET", "LIST"}, ops)
}

func TestOperationsFromSchemaNoOperationProperty(t *testing.T) {
	ops := OperationsFromSchema(json.RawMessage(`{"type":"object","properties":{}}`))
	assert.Nil(t, ops)
}

func TestSynthesizeArgumentsNameHeuristics(t *testing.T) {
	args := SynthesizeArguments(json.RawMessage(productSchema), "SEARCH")
	require.Equal(t, "SEARCH", args["operation"])
	assert.Equal(t, "search query", args["query"])
	assert.Equal(t, "test-id-123", args["id"])
	assert.Equal(t, "test value", args["field"])
}

func TestSynthesizeArgumentsLocationAndDomain(t *testing.T) {
	schema := `{"properties":{"location":{"type":"string"},"domain":{"type":"string"}}}`
	args := SynthesizeArguments(json.RawMessage(schema), "GET")
	assert.Equal(t, "London", args["location"])
	assert.Equal(t, "target.example.com", args["domain"])
}

func TestSynthesizeArgumentsTypeDefaults(t *testing.T) {
	schema := `{"properties":{"count":{"type":"number"},"active":{"type":"boolean"},"tags":{"type":"array"},"meta":{"type":"object"}}}`
	args := SynthesizeArguments(json.RawMessage(schema), "LIST")
	assert.Equal(t, 1, args["count"])
	assert.Equal(t, true, args["active"])
	assert.Equal(t, []any{}, args["tags"])
	assert.Equal(t, map[string]any{}, args["meta"])
}

func TestSynthesizeArgumentsMalformedSchemaFallsBackToOperationOnly(t *testing.T) {
	args := SynthesizeArguments(json.RawMessage(`not json`), "SEARCH")
	assert.Equal(t, map[string]any{"operation": "SEARCH"}, args)
}
