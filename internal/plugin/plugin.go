// Package plugin defines the capability-provider contract that backs every
// MCP tool and resource, plus a reusable JSON-file-backed implementation.
// Grounded on original_source/mcpi-common/src/plugin.rs (the McpPlugin trait)
// and adapted to Go's small-interface-plus-embeddable-defaults idiom the way
// the teacher repo generalizes mcp.MCPClient across HTTP/STDIO transports.
package plugin

import (
	"context"
	"encoding/json"
)

// Kind distinguishes core, always-on capabilities from optional extensions.
type Kind string

const (
	KindCore      Kind = "core"
	KindExtension Kind = "extension"
)

// ResourceDescriptor is a (name, uri-suffix, description) tuple a plugin
// advertises for resources/list. The suffix is plugin-defined and opaque to
// the registry and dispatcher.
type ResourceDescriptor struct {
	Name        string
	URISuffix   string
	Description string
}

// ToolAnnotations mirrors mcp.ToolAnnotations without importing internal/mcp,
// keeping this package free of a dependency on the wire-type package; the
// dispatcher translates between the two at the boundary.
type ToolAnnotations struct {
	Title           string
	ReadOnlyHint    bool
	DestructiveHint bool
	IdempotentHint  bool
	OpenWorldHint   bool
}

// Plugin is the interface every capability provider implements (§4.2).
// Errors returned by Execute/ReadResource are opaque, user-visible-message
// carriers — the dispatcher, not the plugin, decides how to render them on
// the wire (JSON-RPC error vs. isError:true result).
type Plugin interface {
	Name() string
	Description() string
	Category() string
	Kind() Kind
	SupportedOperations() []string
	InputSchema() json.RawMessage
	Execute(ctx context.Context, operation string, arguments json.RawMessage) (json.RawMessage, error)
	Resources() []ResourceDescriptor
	ReadResource(ctx context.Context, suffix string) (ResourceContent, error)
	ToolAnnotations() *ToolAnnotations
	Completions(ctx context.Context, paramName, partialValue string) []string
}

// ResourceContent is what ReadResource returns: either inline text or a
// base64 blob, picked by the caller (internal/dispatch) when it builds the
// wire-level mcp.ResourceContents.
type ResourceContent struct {
	Text     string
	Blob     string
	IsBlob   bool
	MimeType string
}

// ErrResourceNotSupported is returned by BasePlugin's default ReadResource.
type ErrResourceNotSupported struct{ Plugin string }

func (e ErrResourceNotSupported) Error() string {
	return "plugin " + e.Plugin + " does not support resource reads"
}

// BasePlugin supplies default implementations for the optional hooks
// (ReadResource, ToolAnnotations, Completions), so leaf plugins only need to
// implement the operations that matter to them — the same default-method
// shape as the original Rust trait's get_resources/get_capabilities defaults.
type BasePlugin struct {
	PluginName string
}

func (b BasePlugin) ReadResource(ctx context.Context, suffix string) (ResourceContent, error) {
	return ResourceContent{}, ErrResourceNotSupported{Plugin: b.PluginName}
}

func (b BasePlugin) ToolAnnotations() *ToolAnnotations { return nil }

func (b BasePlugin) Completions(ctx context.Context, paramName, partialValue string) []string {
	return nil
}
