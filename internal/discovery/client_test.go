package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMCPTXTRecordStandard(t *testing.T) {
	info, err := parseMCPTXTRecord("v=mcp1 url=https://mcp.example.com/discover")
	require.NoError(t, err)
	assert.Equal(t, "mcp1", info.Version)
	assert.Equal(t, "https://mcp.example.com/discover", info.Endpoint)
}

func TestParseMCPTXTRecordDifferentOrder(t *testing.T) {
	info, err := parseMCPTXTRecord("url=wss://secure.mcp.org/path v=mcp2 extra=data")
	require.NoError(t, err)
	assert.Equal(t, "mcp2", info.Version)
	assert.Equal(t, "wss://secure.mcp.org/path", info.Endpoint)
}

func TestParseMCPTXTRecordNoVersionDefaults(t *testing.T) {
	info, err := parseMCPTXTRecord("url=ws://local.mcp:8080")
	require.NoError(t, err)
	assert.Equal(t, "mcp1", info.Version)
}

func TestParseMCPTXTRecordNoURL(t *testing.T) {
	_, err := parseMCPTXTRecord("v=mcp1 something=else")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No endpoint URL (url=...) found")
}

func TestParseMCPTXTRecordInvalidProtocol(t *testing.T) {
	_, err := parseMCPTXTRecord("v=mcp1 url=ftp://mcp.example.com/discover")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid endpoint protocol scheme: 'ftp'")
}

func TestParseMCPTXTRecordExtraWhitespace(t *testing.T) {
	info, err := parseMCPTXTRecord("  v=mcpX   url=http://mcp.test/api  ")
	require.NoError(t, err)
	assert.Equal(t, "mcpX", info.Version)
	assert.Equal(t, "http://mcp.test/api", info.Endpoint)
}

func TestDeriveEndpoints(t *testing.T) {
	eps, err := DeriveEndpoints("https://mcp.example.com/mcpi/discover")
	require.NoError(t, err)
	assert.Equal(t, "https://mcp.example.com", eps.Base)
	assert.Equal(t, "wss://mcp.example.com/mcpi", eps.WebSocket)
	assert.Equal(t, "https://mcp.example.com/mcp", eps.Streamable)
}

func TestDeriveEndpointsHTTP(t *testing.T) {
	eps, err := DeriveEndpoints("http://mcp.test/mcpi/discover")
	require.NoError(t, err)
	assert.Equal(t, "ws://mcp.test/mcpi", eps.WebSocket)
}
