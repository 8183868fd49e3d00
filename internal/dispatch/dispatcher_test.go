package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/mcp"
	"github.com/mcpi-go/mcpi/internal/plugin"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	reg := plugin.NewRegistry()
	p := plugin.NewJSONDataPlugin("store_product", "Product catalog", "commerce",
		[]string{"SEARCH", "GET", "LIST"}, "products.json", "../plugin/testdata", nil)
	require.NoError(t, reg.Register(p))

	return &Dispatcher{
		Registry:      reg,
		Provider:      ProviderInfo{Name: "Acme", Domain: "acme.example.com", Description: "Acme Corp"},
		ServerName:    "Acme",
		ServerVersion: "1.0.0",
	}
}

func req(id, method, params string) *mcp.JSONRPCRequest {
	var raw json.RawMessage
	if params != "" {
		raw = json.RawMessage(params)
	}
	return &mcp.JSONRPCRequest{JSONRPC: mcp.JSONRPCVersion, ID: json.RawMessage(id), Method: method, Params: raw}
}

func TestDispatchInitialize(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), req(`1`, mcp.MethodInitialize, ""), Options{ProtocolVersion: mcp.MCPProtocolVersion})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, mcp.MCPProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "Acme", result.ServerInfo.Name)
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), req(`2`, "bogus/method", ""), Options{})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.MethodNotFound, resp.Error.Code)
}

func TestDispatchPing(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), req(`3`, mcp.MethodPing, ""), Options{})
	require.NotNil(t, resp)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestDispatchNotificationProducesNoResponse(t *testing.T) {
	d := newTestDispatcher(t)
	r := req("", mcp.MethodInitialized, "")
	r.ID = nil
	resp := d.Dispatch(context.Background(), r, Options{})
	assert.Nil(t, resp)
}

func TestDispatchToolsList(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), req(`4`, mcp.MethodToolsList, ""), Options{})
	require.NotNil(t, resp)
	var result mcp.ToolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "store_product", result.Tools[0].Name)
}

func TestDispatchToolsCallNotFoundIsJSONRPCError(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"name":"nope","arguments":{"operation":"GET","id":"1"}}`
	resp := d.Dispatch(context.Background(), req(`5`, mcp.MethodToolsCall, params), Options{})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.InvalidParams, resp.Error.Code)
}

func TestDispatchToolsCallExecutionErrorSetsIsError(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"name":"store_product","arguments":{"operation":"BOGUS"}}`
	resp := d.Dispatch(context.Background(), req(`6`, mcp.MethodToolsCall, params), Options{})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.ToolCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "Exec err: ")
}

func TestDispatchToolsCallSuccess(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"name":"store_product","arguments":{"operation":"LIST"}}`
	resp := d.Dispatch(context.Background(), req(`7`, mcp.MethodToolsCall, params), Options{})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.ToolCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.False(t, result.IsError)
}

func TestDispatchResourcesReadInvalidURI(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"uri":"not-a-valid-uri"}`
	resp := d.Dispatch(context.Background(), req(`8`, mcp.MethodResourcesRead, params), Options{})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.InvalidParams, resp.Error.Code)
}

func TestDispatchResourcesReadSuccess(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"uri":"mcpi://acme.example.com/resources/store_product/products.json"}`
	resp := d.Dispatch(context.Background(), req(`9`, mcp.MethodResourcesRead, params), Options{})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.ResourceReadResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Contents, 1)
	require.NotNil(t, result.Contents[0].Text)
}

func TestDispatchCompletionToolNameHeuristic(t *testing.T) {
	d := newTestDispatcher(t)
	params := `{"ref":{"type":"ref/prompt"},"argument":{"name":"name","value":"store"}}`
	resp := d.Dispatch(context.Background(), req(`10`, mcp.MethodCompletionComplete, params), Options{})
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.CompletionResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, []string{"store_product"}, result.Completion.Values)
}
