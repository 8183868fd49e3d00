// Package wstransport implements the legacy WebSocket channel at GET /mcpi
// (C8). There is no session state: every request is self-contained and each
// connection runs its own read loop feeding the batch handler directly.
// Grounded on the teacher's internal/observability/hub.go (gorilla/websocket
// upgrade, write-pump/read-pump goroutine split), trimmed from a
// broadcast-fan-out hub down to a per-connection dispatch loop since there
// are no subscribers here, just one client talking to one dispatcher.
package wstransport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcpi-go/mcpi/internal/admin"
	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/mcp"
)

var upgrader = websocket.Upgrader{
	// No origin restriction: matches §Non-goals (auth/TLS are a fronting
	// proxy's job, not this transport's).
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades GET /mcpi to a WebSocket and dispatches every text frame
// through the shared Dispatcher.
type Handler struct {
	Dispatcher *dispatch.Dispatcher
	Counters   *admin.Counters
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientID := uuid.NewString()
	log.Info().Str("client_id", clientID).Msg("websocket connection opened")
	if h.Counters != nil {
		h.Counters.WebSocketConnected()
		defer h.Counters.WebSocketDisconnected()
	}

	send := make(chan []byte, 64)
	done := make(chan struct{})

	go h.writePump(conn, send, done)
	h.readLoop(r.Context(), conn, send, clientID)

	close(done)
	conn.Close()
	log.Info().Str("client_id", clientID).Msg("websocket connection closed")
}

// writePump serializes writes to the connection onto a single goroutine, the
// same split the teacher's Hub.writePump uses, since gorilla/websocket
// connections aren't safe for concurrent writers.
func (h *Handler) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readLoop receives frames and dispatches them in order (§4.8: "for a
// single-reader loop [response order] equals request order").
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, send chan<- []byte, clientID string) {
	defer close(send)
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			resp := dispatch.HandleMessage(ctx, h.Dispatcher, payload, dispatch.Options{ProtocolVersion: mcp.MCPIProtocolVersion})
			if resp == nil {
				continue
			}
			select {
			case send <- resp:
			default:
				log.Warn().Str("client_id", clientID).Msg("websocket send buffer full, dropping response")
			}

		case websocket.BinaryMessage:
			log.Warn().Str("client_id", clientID).Msg("rejecting binary frame")
			continue

		case websocket.CloseMessage:
			return
		}
	}
}
