package clientdriver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/plugin"
	"github.com/mcpi-go/mcpi/internal/transport/streamable"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := plugin.NewRegistry()
	p := plugin.NewJSONDataPlugin("store_product", "Product catalog", "commerce",
		[]string{"SEARCH", "GET", "LIST"}, "products.json", "../plugin/testdata", nil)
	require.NoError(t, reg.Register(p))

	d := &dispatch.Dispatcher{
		Registry:      reg,
		Provider:      dispatch.ProviderInfo{Name: "Acme", Domain: "acme.example.com", Description: "Acme Corp"},
		ServerName:    "Acme",
		ServerVersion: "1.0.0",
	}
	store := streamable.NewStore(time.Minute, time.Minute)
	t.Cleanup(store.Stop)
	handler := streamable.NewHandler(d, store)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientInitializeOverStreamableHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := New(srv.URL)

	result, err := client.Initialize(context.Background(), "2025-03-26", "test-client", "0.1.0")
	require.NoError(t, err)
	assert.Equal(t, "Acme", result.ServerInfo.Name)
}

func TestClientToolsCallOverStreamableHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := New(srv.URL)
	ctx := context.Background()

	_, err := client.Initialize(ctx, "2025-03-26", "test-client", "0.1.0")
	require.NoError(t, err)

	result, err := client.CallTool(ctx, "store_product", map[string]any{"operation": "GET", "id": "p1"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
}

func TestClientPingOverStreamableHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := New(srv.URL)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClientBatchOverStreamableHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := New(srv.URL)

	responses, err := client.Batch(context.Background())
	require.NoError(t, err)
	assert.Len(t, responses, 2)
}
