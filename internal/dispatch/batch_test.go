package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

func TestHandleMessageMalformedJSON(t *testing.T) {
	d := newTestDispatcher(t)
	out := HandleMessage(context.Background(), d, []byte(`{not json`), Options{})
	require.NotNil(t, out)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}

func TestHandleMessageSingleRequest(t *testing.T) {
	d := newTestDispatcher(t)
	out := HandleMessage(context.Background(), d, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), Options{})
	require.NotNil(t, out)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestHandleMessageSingleNotificationProducesNoBody(t *testing.T) {
	d := newTestDispatcher(t)
	out := HandleMessage(context.Background(), d, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), Options{})
	assert.Nil(t, out)
}

func TestHandleMessageBatchPreservesOrderAndDropsNotifications(t *testing.T) {
	d := newTestDispatcher(t)
	batch := `[
		{"jsonrpc":"2.0","id":1,"method":"ping"},
		{"jsonrpc":"2.0","method":"notifications/initialized"},
		{"jsonrpc":"2.0","id":2,"method":"ping"}
	]`
	out := HandleMessage(context.Background(), d, []byte(batch), Options{})
	require.NotNil(t, out)

	var resps []mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(out, &resps))
	require.Len(t, resps, 2)
	assert.Equal(t, `1`, string(resps[0].ID))
	assert.Equal(t, `2`, string(resps[1].ID))
}

func TestHandleMessageAllNotificationBatchProducesNoBody(t *testing.T) {
	d := newTestDispatcher(t)
	batch := `[
		{"jsonrpc":"2.0","method":"notifications/initialized"},
		{"jsonrpc":"2.0","method":"notifications/initialized"}
	]`
	out := HandleMessage(context.Background(), d, []byte(batch), Options{})
	assert.Nil(t, out)
}

func TestHandleMessageNonArrayNonObjectTopLevel(t *testing.T) {
	d := newTestDispatcher(t)
	out := HandleMessage(context.Background(), d, []byte(`"just a string"`), Options{})
	require.NotNil(t, out)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.ParseError, resp.Error.Code)
}
