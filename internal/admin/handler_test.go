package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/plugin"
)

func TestServeStats(t *testing.T) {
	counters := NewCounters(func() int { return 2 })
	counters.IncRequestsProcessed()
	counters.IncRequestsProcessed()
	counters.WebSocketConnected()

	h := NewHandler(counters, plugin.NewRegistry())

	rec := httptest.NewRecorder()
	h.ServeStats(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalRequestsProcessed)
	assert.Equal(t, int64(1), stats.ActiveWebSocketConnections)
	assert.Equal(t, 2, stats.ActiveHTTPSessions)
}

func TestServePlugins(t *testing.T) {
	reg := plugin.NewRegistry()
	p := plugin.NewJSONDataPlugin("store_product", "Product catalog", "commerce",
		[]string{"SEARCH", "GET", "LIST"}, "products.json", "../plugin/testdata", nil)
	require.NoError(t, reg.Register(p))

	h := NewHandler(NewCounters(func() int { return 0 }), reg)

	rec := httptest.NewRecorder()
	h.ServePlugins(rec, httptest.NewRequest(http.MethodGet, "/api/admin/plugins", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Plugins []pluginSummary `json:"plugins"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Plugins, 1)
	assert.Equal(t, "store_product", body.Plugins[0].Name)
	assert.Equal(t, []string{"SEARCH", "GET", "LIST"}, body.Plugins[0].Operations)
}
