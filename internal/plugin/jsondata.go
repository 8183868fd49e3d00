package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// JSONDataPlugin is a generic capability backed by a single JSON array file
// on disk, supporting SEARCH/GET/LIST. Grounded verbatim on
// original_source/mcpi-common/src/json_plugin.rs's JsonDataPlugin.
type JSONDataPlugin struct {
	BasePlugin
	name        string
	description string
	category    string
	operations  []string
	dataFile    string
	dataDir     string
	pool        *FilePool
}

// NewJSONDataPlugin builds a JSON-file-backed plugin. pool may be nil, in
// which case reads happen on the calling goroutine (used by tests).
func NewJSONDataPlugin(name, description, category string, operations []string, dataFile, dataDir string, pool *FilePool) *JSONDataPlugin {
	return &JSONDataPlugin{
		BasePlugin:  BasePlugin{PluginName: name},
		name:        name,
		description: description,
		category:    category,
		operations:  operations,
		dataFile:    dataFile,
		dataDir:     dataDir,
		pool:        pool,
	}
}

func (p *JSONDataPlugin) Name() string        { return p.name }
func (p *JSONDataPlugin) Description() string { return p.description }
func (p *JSONDataPlugin) Category() string    { return p.category }
func (p *JSONDataPlugin) Kind() Kind          { return KindCore }

func (p *JSONDataPlugin) SupportedOperations() []string {
	out := make([]string, len(p.operations))
	copy(out, p.operations)
	return out
}

func (p *JSONDataPlugin) InputSchema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type":        "string",
				"enum":        p.operations,
				"description": "Operation to perform",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Query string for SEARCH operation",
			},
			"id": map[string]interface{}{
				"type":        "string",
				"description": "ID for GET operation",
			},
			"field": map[string]interface{}{
				"type":        "string",
				"description": "Field to search in for SEARCH operation",
			},
		},
		"required": []string{"operation"},
	}
	raw, _ := json.Marshal(schema)
	return raw
}

func (p *JSONDataPlugin) Resources() []ResourceDescriptor {
	return []ResourceDescriptor{{
		Name:        p.name,
		URISuffix:   p.dataFile,
		Description: p.description,
	}}
}

func (p *JSONDataPlugin) ReadResource(ctx context.Context, suffix string) (ResourceContent, error) {
	if suffix != p.dataFile {
		return ResourceContent{}, ErrResourceNotSupported{Plugin: p.name}
	}
	raw, err := p.loadRaw(ctx)
	if err != nil {
		return ResourceContent{}, err
	}
	return ResourceContent{Text: string(raw), MimeType: "application/json"}, nil
}

// loadRaw reads the backing JSON file, offloaded to the worker pool when one
// is configured (§ "Filesystem I/O in plugins": blocking, isolate off the
// dispatcher's goroutine).
func (p *JSONDataPlugin) loadRaw(ctx context.Context) ([]byte, error) {
	path := filepath.Join(p.dataDir, p.dataFile)
	if p.pool == nil {
		return os.ReadFile(path)
	}
	return p.pool.ReadFile(ctx, path)
}

func (p *JSONDataPlugin) loadData(ctx context.Context) ([]interface{}, error) {
	raw, err := p.loadRaw(ctx)
	if err != nil {
		return nil, err
	}
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("plugin %s: malformed data file %s: %w", p.name, p.dataFile, err)
	}
	return items, nil
}

// Execute implements SEARCH/GET/LIST per json_plugin.rs's exact semantics.
func (p *JSONDataPlugin) Execute(ctx context.Context, operation string, arguments json.RawMessage) (json.RawMessage, error) {
	supported := false
	for _, op := range p.operations {
		if op == operation {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("operation '%s' not supported for plugin '%s'", operation, p.name)
	}

	items, err := p.loadData(ctx)
	if err != nil {
		return nil, err
	}

	var params struct {
		Query string `json:"query"`
		ID    string `json:"id"`
		Field string `json:"field"`
	}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	switch operation {
	case "SEARCH":
		field := params.Field
		if field == "" {
			field = "name"
		}
		query := params.Query
		filtered := make([]interface{}, 0, len(items))
		for _, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			fieldValue, _ := obj[field].(string)
			if query == "" || strings.Contains(strings.ToLower(fieldValue), strings.ToLower(query)) {
				filtered = append(filtered, item)
			}
		}
		return json.Marshal(map[string]interface{}{
			"results": filtered,
			"count":   len(filtered),
			"query":   query,
			"field":   field,
		})

	case "GET":
		for _, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if id, _ := obj["id"].(string); id == params.ID {
				return json.Marshal(item)
			}
		}
		return json.Marshal(map[string]interface{}{
			"error": "Item not found",
			"id":    params.ID,
		})

	case "LIST":
		return json.Marshal(map[string]interface{}{
			"results": items,
			"count":   len(items),
		})

	default:
		return nil, fmt.Errorf("unsupported operation '%s'", operation)
	}
}
