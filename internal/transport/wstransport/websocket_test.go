package wstransport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/plugin"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := plugin.NewRegistry()
	d := &dispatch.Dispatcher{
		Registry:      reg,
		Provider:      dispatch.ProviderInfo{Name: "Acme", Domain: "acme.example.com", Description: "Acme Corp"},
		ServerName:    "Acme",
		ServerVersion: "1.0.0",
	}
	h := &Handler{Dispatcher: d}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBinaryFrameIsIgnoredConnectionStaysOpen(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.Contains(t, string(payload), `"result"`)
}

func TestTextFrameDispatchesAndResponds(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"result"`)
}

func TestCloseFrameEndsLoop(t *testing.T) {
	srv := newTestServer(t)
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
