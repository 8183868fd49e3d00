package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/mcpi-go/mcpi/internal/admin"
	"github.com/mcpi-go/mcpi/internal/audit"
	"github.com/mcpi-go/mcpi/internal/mcp"
	"github.com/mcpi-go/mcpi/internal/plugin"
	"github.com/mcpi-go/mcpi/internal/telemetry"
)

// ProviderInfo is the immutable provider identity advertised at initialize
// and discovery time (§3 "Provider info").
type ProviderInfo struct {
	Name        string
	Domain      string
	Description string
}

// Dispatcher routes a single parsed JSON-RPC request to one handler per
// method and formats its response (C5). It is re-entrant and holds no
// mutable state beyond the registry/provider info set at construction,
// matching §5's "dispatcher is re-entrant and holds no mutable state of its
// own". Grounded on original_source/mcpi-server/src/main.rs's
// process_mcp_message switch, generalized to the supplemented methods
// (resources/templates/list, prompts/*, logging/setLevel) SPEC_FULL.md adds.
type Dispatcher struct {
	Registry      *plugin.Registry
	Provider      ProviderInfo
	ServerName    string
	ServerVersion string
	// Counters is optional; when set, every dispatched request is counted
	// toward the admin stats surface's total_requests_processed (§6).
	Counters *admin.Counters
	// Audit is optional; when set, every tools/call is recorded to the
	// audit log.
	Audit *audit.Log
}

// Options carries per-call context a transport supplies — principally which
// protocol version string to echo back at initialize, since the WebSocket
// and streamable HTTP transports advertise different versions (MCPIProtocolVersion
// vs MCPProtocolVersion) against the same dispatcher instance.
type Options struct {
	ProtocolVersion string
}

// Dispatch handles one already-parsed request and returns its response, or
// nil if the request was a notification (no response is ever sent for one).
func (d *Dispatcher) Dispatch(ctx context.Context, req *mcp.JSONRPCRequest, opts Options) *mcp.JSONRPCResponse {
	isNotify := req.IsNotification()
	start := time.Now()
	defer recordRequestMetrics(ctx, req.Method, start)
	if d.Counters != nil {
		d.Counters.IncRequestsProcessed()
	}

	switch req.Method {
	case mcp.MethodInitialize:
		resp := d.handleInitialize(req, opts)
		if isNotify {
			return nil
		}
		return resp

	case mcp.MethodInitialized:
		// Client acknowledgment; no response regardless of id.
		return nil

	case mcp.MethodPing:
		if isNotify {
			return nil
		}
		result, _ := mcp.NewSuccessResponse(req.ID, struct{}{})
		return result

	case mcp.MethodResourcesList:
		if isNotify {
			return nil
		}
		return d.handleResourcesList(req)

	case mcp.MethodResourcesRead:
		if isNotify {
			return nil
		}
		return d.handleResourcesRead(ctx, req)

	case mcp.MethodResourcesTemplates:
		if isNotify {
			return nil
		}
		result, _ := mcp.NewSuccessResponse(req.ID, mcp.ResourceTemplatesListResult{ResourceTemplates: []mcp.ResourceTemplate{}})
		return result

	case mcp.MethodToolsList:
		if isNotify {
			return nil
		}
		return d.handleToolsList(req)

	case mcp.MethodToolsCall:
		if isNotify {
			return nil
		}
		return d.handleToolsCall(ctx, req)

	case mcp.MethodPromptsList:
		if isNotify {
			return nil
		}
		result, _ := mcp.NewSuccessResponse(req.ID, mcp.PromptsListResult{Prompts: []mcp.Prompt{}})
		return result

	case mcp.MethodPromptsGet:
		if isNotify {
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "no prompts are registered")

	case mcp.MethodLoggingSetLevel:
		resp := d.handleLoggingSetLevel(req)
		if isNotify {
			return nil
		}
		return resp

	case mcp.MethodCompletionComplete:
		if isNotify {
			return nil
		}
		return d.handleCompletion(ctx, req)

	default:
		if isNotify {
			return nil
		}
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func recordRequestMetrics(ctx context.Context, method string, start time.Time) {
	if telemetry.MCPRequestsTotal == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("method", method))
	telemetry.MCPRequestsTotal.Add(ctx, 1, attrs)
	telemetry.MCPRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

func (d *Dispatcher) handleInitialize(req *mcp.JSONRPCRequest, opts Options) *mcp.JSONRPCResponse {
	names := make([]string, 0)
	for _, p := range d.Registry.All() {
		names = append(names, p.Name())
	}

	protocolVersion := opts.ProtocolVersion
	if protocolVersion == "" {
		protocolVersion = mcp.MCPProtocolVersion
	}

	result := mcp.InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Resources: &mcp.ResourcesCapability{ListChanged: true, Subscribe: true},
			Tools:     &mcp.ToolsCapability{ListChanged: true},
			Logging:   &mcp.LoggingCapability{},
		},
		ServerInfo: mcp.ServerInfo{Name: d.Provider.Name, Version: d.ServerVersion},
		Instructions: fmt.Sprintf(
			"This is an MCPI server for %s. You can access plugins like: %s.",
			d.Provider.Description, strings.Join(names, ", "),
		),
	}
	resp, err := mcp.NewSuccessResponse(req.ID, result)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InternalError, err.Error())
	}
	return resp
}

func (d *Dispatcher) handleResourcesList(req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	resources := make([]mcp.Resource, 0)
	for _, p := range d.Registry.All() {
		for _, rd := range p.Resources() {
			resources = append(resources, mcp.Resource{
				URI:         fmt.Sprintf("mcpi://%s/resources/%s/%s", d.Provider.Domain, p.Name(), rd.URISuffix),
				Name:        rd.Name,
				Description: rd.Description,
				MimeType:    "application/json",
			})
		}
	}
	resp, _ := mcp.NewSuccessResponse(req.ID, mcp.ResourcesListResult{Resources: resources})
	return resp
}

// parseResourceURI extracts the plugin name and suffix from a
// mcpi://<domain>/resources/<plugin>/<suffix...> URI (§4.5 "URI parsing for
// resources/read").
func parseResourceURI(raw string) (pluginName, suffix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", ErrInvalidURI{URI: raw}
	}
	if u.Scheme != "mcpi" {
		return "", "", ErrInvalidURI{URI: raw}
	}
	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] != "resources" {
		return "", "", ErrInvalidURI{URI: raw}
	}
	pluginName = segments[1]
	suffix = strings.Join(segments[2:], "/")
	return pluginName, suffix, nil
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	var params mcp.ResourceReadParams
	if len(req.Params) == 0 {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for resources/read")
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for resources/read")
	}

	pluginName, suffix, err := parseResourceURI(params.URI)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, err.Error())
	}

	p, ok := d.Registry.Get(pluginName)
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.ApplicationErrorFloor, ErrPluginNotFound{Name: pluginName}.Error())
	}

	content, err := p.ReadResource(ctx, suffix)
	if err != nil {
		log.Warn().Err(err).Str("plugin", pluginName).Str("uri", params.URI).Msg("resource read failed")
		return mcp.NewErrorResponse(req.ID, mcp.ApplicationErrorFloor, fmt.Sprintf("Error reading resource: %s", err.Error()))
	}

	rc := mcp.ResourceContents{URI: params.URI, MimeType: content.MimeType}
	if content.IsBlob {
		rc.Blob = &content.Blob
	} else {
		rc.Text = &content.Text
	}

	resp, _ := mcp.NewSuccessResponse(req.ID, mcp.ResourceReadResult{Contents: []mcp.ResourceContents{rc}})
	return resp
}

func (d *Dispatcher) handleToolsList(req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	tools := make([]mcp.Tool, 0)
	for _, p := range d.Registry.All() {
		var annotations *mcp.ToolAnnotations
		if a := p.ToolAnnotations(); a != nil {
			annotations = &mcp.ToolAnnotations{
				Title:           a.Title,
				ReadOnlyHint:    a.ReadOnlyHint,
				DestructiveHint: a.DestructiveHint,
				IdempotentHint:  a.IdempotentHint,
				OpenWorldHint:   a.OpenWorldHint,
			}
		}
		tools = append(tools, mcp.Tool{
			Name:        p.Name(),
			Description: p.Description(),
			InputSchema: p.InputSchema(),
			Annotations: annotations,
		})
	}
	resp, _ := mcp.NewSuccessResponse(req.ID, mcp.ToolsListResult{Tools: tools})
	return resp
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	if len(req.Params) == 0 {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for tools/call")
	}
	var params mcp.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for tools/call")
	}

	p, ok := d.Registry.Get(params.Name)
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, ErrPluginNotFound{Name: params.Name}.Error())
	}

	operation, _ := params.Arguments["operation"].(string)
	if operation == "" {
		operation = "SEARCH"
	}
	argBytes, err := json.Marshal(params.Arguments)
	if err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for tools/call")
	}

	callStart := time.Now()
	result, execErr := p.Execute(ctx, operation, argBytes)
	if telemetry.MCPToolCallsTotal != nil {
		attrs := otelmetric.WithAttributes(
			attribute.String("tool", params.Name),
			attribute.String("operation", operation),
		)
		telemetry.MCPToolCallsTotal.Add(ctx, 1, attrs)
		telemetry.MCPToolCallDuration.Record(ctx, float64(time.Since(callStart).Milliseconds()), attrs)
	}
	if execErr != nil {
		log.Warn().Err(execErr).Str("tool", params.Name).Str("operation", operation).Msg("tool execution failed")
		if d.Audit != nil {
			d.Audit.Record(ctx, audit.Entry{
				Method: mcp.MethodToolsCall, ToolName: params.Name, Operation: operation,
				DurationMS: int(time.Since(callStart).Milliseconds()), IsError: true,
			})
		}
		resp, _ := mcp.NewSuccessResponse(req.ID, mcp.ToolCallResult{
			Content: []mcp.ContentItem{mcp.NewTextContent("Exec err: " + execErr.Error())},
			IsError: true,
		})
		return resp
	}

	if d.Audit != nil {
		d.Audit.Record(ctx, audit.Entry{
			Method: mcp.MethodToolsCall, ToolName: params.Name, Operation: operation,
			DurationMS: int(time.Since(callStart).Milliseconds()), IsError: false,
		})
	}

	pretty, err := json.MarshalIndent(json.RawMessage(result), "", "  ")
	if err != nil {
		pretty = result
	}
	resp, _ := mcp.NewSuccessResponse(req.ID, mcp.ToolCallResult{
		Content: []mcp.ContentItem{mcp.NewTextContent(string(pretty))},
	})
	return resp
}

func (d *Dispatcher) handleLoggingSetLevel(req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	var params struct {
		Level string `json:"level"`
	}
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}
	if lvl, err := zerolog.ParseLevel(params.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if req.IsNotification() {
		return nil
	}
	resp, _ := mcp.NewSuccessResponse(req.ID, struct{}{})
	return resp
}

func (d *Dispatcher) handleCompletion(ctx context.Context, req *mcp.JSONRPCRequest) *mcp.JSONRPCResponse {
	if len(req.Params) == 0 {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for completion/complete")
	}
	var params mcp.CompletionParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "Invalid params for completion/complete")
	}

	var values []string
	switch {
	case params.Argument.Name == "name" && params.Ref.Name == "":
		for _, p := range d.Registry.All() {
			if strings.HasPrefix(p.Name(), params.Argument.Value) {
				values = append(values, p.Name())
			}
		}
	case params.Ref.Name != "":
		if p, ok := d.Registry.Get(params.Ref.Name); ok {
			values = p.Completions(ctx, params.Argument.Name, params.Argument.Value)
		}
	}
	if values == nil {
		values = []string{}
	}

	resp, _ := mcp.NewSuccessResponse(req.ID, mcp.CompletionResult{Completion: mcp.Completion{Values: values}})
	return resp
}
