// Package clientdriver implements the client side of C11: a driver that
// establishes a session on either the legacy WebSocket transport or the
// streamable-HTTP transport and drives a scripted request sequence against a
// server. Grounded on the teacher's internal/mcp.Client (transport
// auto-detection, allocID, sendRequest), trimmed of the upstream-proxy
// concerns (OTel spans, metrics, auth/custom header injection) that only
// make sense when the client is itself a gateway relaying to someone else's
// upstream.
package clientdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

// Transport identifies which wire protocol a Client speaks.
type Transport int

const (
	// TransportWebSocket speaks MCPI over a gorilla/websocket connection.
	TransportWebSocket Transport = iota
	// TransportStreamableHTTP speaks MCP over POST/GET at /mcp.
	TransportStreamableHTTP
)

// Client drives a single session against an MCP/MCPI server over one of the
// two transports, fixed at construction: New speaks streamable HTTP, Dial and
// NewWebSocket speak WebSocket. The transport is not detected from the
// endpoint.
type Client struct {
	httpClient *http.Client
	transport  Transport

	// streamable-HTTP state
	baseURL   string
	sessionID string

	// WebSocket state
	conn   *websocket.Conn
	connMu sync.Mutex

	nextID int64
}

// New builds a Client for the streamable-HTTP transport at baseURL (the
// `/mcp` endpoint).
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		transport:  TransportStreamableHTTP,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// NewWebSocket builds a Client bound to an already-dialed MCPI connection.
func NewWebSocket(conn *websocket.Conn) *Client {
	return &Client{transport: TransportWebSocket, conn: conn}
}

// Dial connects to wsURL and returns a WebSocket-transport Client.
func Dial(ctx context.Context, wsURL string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", wsURL, err)
	}
	return NewWebSocket(conn), nil
}

func (c *Client) allocID() json.RawMessage {
	id := atomic.AddInt64(&c.nextID, 1)
	return json.RawMessage(fmt.Sprintf("%d", id))
}

// Close releases the underlying transport connection, if any.
func (c *Client) Close() error {
	if c.transport == TransportWebSocket && c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// sendRequest round-trips a single JSON-RPC request and returns its response.
func (c *Client) sendRequest(ctx context.Context, req *mcp.JSONRPCRequest) (*mcp.JSONRPCResponse, error) {
	switch c.transport {
	case TransportWebSocket:
		return c.sendWebSocketRequest(req)
	default:
		return c.sendHTTPRequest(ctx, req)
	}
}

func (c *Client) sendWebSocketRequest(req *mcp.JSONRPCRequest) (*mcp.JSONRPCResponse, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("websocket write: %w", err)
	}
	var resp mcp.JSONRPCResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	return &resp, nil
}

func (c *Client) sendHTTPRequest(ctx context.Context, req *mcp.JSONRPCRequest) (*mcp.JSONRPCResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	httpReq.Header.Set("MCP-Protocol-Version", mcp.MCPProtocolVersion)
	if c.sessionID != "" {
		httpReq.Header.Set("Mcp-Session-Id", c.sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if sid := httpResp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.sessionID = sid
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp mcp.JSONRPCResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// Initialize sends the initialize request and returns the parsed result.
func (c *Client) Initialize(ctx context.Context, protocolVersion, clientName, clientVersion string) (*mcp.InitializeResult, error) {
	params := mcp.InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    mcp.ClientCapabilities{Sampling: &mcp.SamplingCapability{}},
		ClientInfo:      mcp.ClientInfo{Name: clientName, Version: clientVersion},
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	resp, err := c.sendRequest(ctx, &mcp.JSONRPCRequest{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      c.allocID(),
		Method:  mcp.MethodInitialize,
		Params:  paramsJSON,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("initialize error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal initialize result: %w", err)
	}
	return &result, nil
}

// ListResources sends resources/list.
func (c *Client) ListResources(ctx context.Context) (*mcp.ResourcesListResult, error) {
	resp, err := c.sendRequest(ctx, &mcp.JSONRPCRequest{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      c.allocID(),
		Method:  mcp.MethodResourcesList,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("resources/list error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	var result mcp.ResourcesListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal resources/list result: %w", err)
	}
	return &result, nil
}

// ListTools sends tools/list.
func (c *Client) ListTools(ctx context.Context) (*mcp.ToolsListResult, error) {
	resp, err := c.sendRequest(ctx, &mcp.JSONRPCRequest{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      c.allocID(),
		Method:  mcp.MethodToolsList,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/list error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	var result mcp.ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal tools/list result: %w", err)
	}
	return &result, nil
}

// CallTool sends a tools/call for the named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.ToolCallResult, error) {
	params := mcp.ToolCallParams{Name: name, Arguments: arguments}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	resp, err := c.sendRequest(ctx, &mcp.JSONRPCRequest{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      c.allocID(),
		Method:  mcp.MethodToolsCall,
		Params:  paramsJSON,
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("tools/call error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	var result mcp.ToolCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal tools/call result: %w", err)
	}
	return &result, nil
}

// Ping sends a ping request.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.sendRequest(ctx, &mcp.JSONRPCRequest{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      c.allocID(),
		Method:  mcp.MethodPing,
	})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("ping error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	return nil
}

// Batch sends a ping and a resources/list as a single JSON-RPC batch and
// returns the raw responses in request order (§4.11 step 4's two-item
// batch).
func (c *Client) Batch(ctx context.Context) ([]*mcp.JSONRPCResponse, error) {
	pingReq := &mcp.JSONRPCRequest{JSONRPC: mcp.JSONRPCVersion, ID: c.allocID(), Method: mcp.MethodPing}
	listReq := &mcp.JSONRPCRequest{JSONRPC: mcp.JSONRPCVersion, ID: c.allocID(), Method: mcp.MethodResourcesList}

	batch := []*mcp.JSONRPCRequest{pingReq, listReq}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	if c.transport == TransportWebSocket {
		c.connMu.Lock()
		defer c.connMu.Unlock()
		if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			return nil, fmt.Errorf("websocket batch write: %w", err)
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("websocket batch read: %w", err)
		}
		return decodeBatchResponse(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		httpReq.Header.Set("Mcp-Session-Id", c.sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return decodeBatchResponse(raw)
}

func decodeBatchResponse(raw []byte) ([]*mcp.JSONRPCResponse, error) {
	var responses []*mcp.JSONRPCResponse
	if err := json.Unmarshal(raw, &responses); err != nil {
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}
	return responses, nil
}
