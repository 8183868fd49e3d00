// Package mcp defines the wire types shared by every transport: the
// JSON-RPC 2.0 envelope, the MCP result/param shapes, and the content and
// resource unions used to describe tool and resource payloads.
package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the only JSON-RPC version this server speaks.
	JSONRPCVersion = "2.0"

	// MCPProtocolVersion is advertised on the streamable HTTP transport.
	MCPProtocolVersion = "2025-03-26"

	// MCPIProtocolVersion is advertised on the legacy WebSocket (MCPI) transport.
	MCPIProtocolVersion = "0.1.0"
)

// MCP methods.
const (
	MethodInitialize         = "initialize"
	MethodInitialized        = "notifications/initialized"
	MethodPing               = "ping"
	MethodToolsList          = "tools/list"
	MethodToolsCall          = "tools/call"
	MethodResourcesList      = "resources/list"
	MethodResourcesRead      = "resources/read"
	MethodResourcesTemplates = "resources/templates/list"
	MethodPromptsList        = "prompts/list"
	MethodPromptsGet         = "prompts/get"
	MethodLoggingSetLevel    = "logging/setLevel"
	MethodCompletionComplete = "completion/complete"
)

// Standard JSON-RPC error codes, plus the application-code floor used for
// plugin/resource errors (§4.5: "application codes >= 100").
const (
	ParseError            = -32700
	InvalidRequest        = -32600
	MethodNotFound        = -32601
	InvalidParams         = -32602
	InternalError         = -32603
	ApplicationErrorFloor = 100
)

// JSONRPCRequest represents a single JSON-RPC 2.0 request or notification.
// A notification is a request whose ID is absent or JSON null.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *JSONRPCRequest) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Exactly one of
// Result/Error is set (I3).
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// JSONRPCNotification represents a server- or client-initiated message
// that carries no id and expects no response.
type JSONRPCNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

var nullID = json.RawMessage("null")

// NewSuccessResponse builds a result envelope, marshaling result into Result.
func NewSuccessResponse(id json.RawMessage, result interface{}) (*JSONRPCResponse, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if len(id) == 0 {
		id = nullID
	}
	return &JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: payload}, nil
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(id json.RawMessage, code int, message string) *JSONRPCResponse {
	if len(id) == 0 {
		id = nullID
	}
	return &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// --- initialize ---

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type SamplingCapability struct{}

type ClientCapabilities struct {
	Roots    *RootsCapability    `json:"roots,omitempty"`
	Sampling *SamplingCapability `json:"sampling,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type LoggingCapability struct{}

type CompletionsCapability struct{}

type ServerCapabilities struct {
	Resources   *ResourcesCapability   `json:"resources,omitempty"`
	Tools       *ToolsCapability       `json:"tools,omitempty"`
	Prompts     *PromptsCapability     `json:"prompts,omitempty"`
	Logging     *LoggingCapability     `json:"logging,omitempty"`
	Completions *CompletionsCapability `json:"completions,omitempty"`
}

type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      ClientInfo         `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// --- content & annotations ---

// Annotations describes audience/priority hints, optional on any content item.
type Annotations struct {
	Audience []string `json:"audience,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// ContentItem is a tagged union over {text, image, audio, resource}.
type ContentItem struct {
	Type        string            `json:"type"`
	Text        string            `json:"text,omitempty"`
	Data        string            `json:"data,omitempty"`     // base64, image/audio
	MimeType    string            `json:"mimeType,omitempty"` // image/audio
	Resource    *ResourceContents `json:"resource,omitempty"`
	Annotations *Annotations      `json:"annotations,omitempty"`
}

// NewTextContent builds a plain text content item.
func NewTextContent(text string) ContentItem {
	return ContentItem{Type: "text", Text: text}
}

// ResourceContents is an untagged union: Text if it carries "text",
// Blob if it carries "blob". An object carrying both is rejected.
type ResourceContents struct {
	URI      string
	MimeType string
	Text     *string
	Blob     *string
}

type resourceContentsWire struct {
	URI      string  `json:"uri"`
	MimeType string  `json:"mimeType,omitempty"`
	Text     *string `json:"text,omitempty"`
	Blob     *string `json:"blob,omitempty"`
}

func (r ResourceContents) MarshalJSON() ([]byte, error) {
	return json.Marshal(resourceContentsWire{
		URI: r.URI, MimeType: r.MimeType, Text: r.Text, Blob: r.Blob,
	})
}

func (r *ResourceContents) UnmarshalJSON(data []byte) error {
	var w resourceContentsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Text != nil && w.Blob != nil {
		return fmt.Errorf("mcp: resource contents carries both text and blob")
	}
	r.URI, r.MimeType, r.Text, r.Blob = w.URI, w.MimeType, w.Text, w.Blob
	return nil
}

// --- tools ---

type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
}

type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema json.RawMessage  `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

type ToolsListResult struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// --- resources ---

type Resource struct {
	URI         string       `json:"uri"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

type ResourcesListResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

type ResourceReadParams struct {
	URI string `json:"uri"`
}

type ResourceReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        *string            `json:"nextCursor,omitempty"`
}

// --- prompts (supplemented; see SPEC_FULL.md) ---

type Prompt struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Arguments   json.RawMessage `json:"arguments,omitempty"`
}

type PromptsListResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor *string  `json:"nextCursor,omitempty"`
}

type PromptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

type PromptGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    json.RawMessage `json:"messages"`
}

// --- completion ---

type CompletionReference struct {
	Type string `json:"type"` // "ref/prompt" | "ref/resource"
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CompletionContext struct {
	Arguments map[string]string `json:"arguments,omitempty"`
}

type CompletionParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
	Context  *CompletionContext  `json:"context,omitempty"`
}

type Completion struct {
	Values  []string `json:"values"`
	Total   *int     `json:"total,omitempty"`
	HasMore *bool    `json:"hasMore,omitempty"`
}

type CompletionResult struct {
	Completion Completion `json:"completion"`
}

// --- discovery (C7) ---

type Provider struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

type Referral struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	Relationship string `json:"relationship"`
}

type CapabilityDescription struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Operations  []string `json:"operations"`
}

type DiscoveryResponse struct {
	Provider     Provider                `json:"provider"`
	Mode         string                  `json:"mode"`
	Capabilities []CapabilityDescription `json:"capabilities"`
	Referrals    []Referral              `json:"referrals"`
}
