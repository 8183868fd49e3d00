package streamable

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/mcp"
	"github.com/mcpi-go/mcpi/internal/telemetry"
)

const sessionHeader = "Mcp-Session-Id"

// Handler serves the three streamable-HTTP verbs at /mcp (C9). Grounded on
// the teacher's gateway.Handler.HandleMCP method-switch, trimmed of
// upstream-target routing and JWT identity since this transport dispatches
// locally and carries no authenticated identity (§ Non-goals).
type Handler struct {
	Dispatcher        *dispatch.Dispatcher
	Store             *Store
	KeepAliveInterval time.Duration
}

// NewHandler builds a Handler with the §4.9-recommended 15s keep-alive.
func NewHandler(d *dispatch.Dispatcher, store *Store) *Handler {
	return &Handler{Dispatcher: d, Store: store, KeepAliveInterval: 15 * time.Second}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost implements §4.9 POST: a single request or batch, answered
// synchronously; 204 for notification-only batches.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONRPCError(w, nil, mcp.ParseError, "Failed to read request body")
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if sessionID != "" {
		if _, ok := h.Store.Get(sessionID); !ok {
			log.Warn().Str("session_id", sessionID).Msg("POST referenced unknown session; processing anyway")
		}
	}

	resp := dispatch.HandleMessage(ctx, h.Dispatcher, body, dispatch.Options{ProtocolVersion: mcp.MCPProtocolVersion})
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// handleGet implements §4.9 GET: opens an SSE stream, provisioning a session
// when the client doesn't present a known one.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := r.Header.Get(sessionHeader)
	session, ok := h.Store.Get(sessionID)
	if !ok {
		session = h.Store.Create()
	}

	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		session.SetLastEventID(lastEventID)
	}

	w.Header().Set(sessionHeader, session.ID)

	sseWriter, err := mcp.NewSSEWriter(w)
	if err != nil {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := session.Broadcaster.Subscribe()
	defer unsubscribe()

	keepAlive := time.NewTicker(h.KeepAliveInterval)
	defer keepAlive.Stop()

	if telemetry.MCPSSEConnectionsActive != nil {
		telemetry.MCPSSEConnectionsActive.Add(ctx, 1)
		defer telemetry.MCPSSEConnectionsActive.Add(ctx, -1)
	}

	log.Info().Str("session_id", session.ID).Msg("streamable SSE stream opened")

	for {
		select {
		case <-ctx.Done():
			sseWriter.Close()
			return
		case <-keepAlive.C:
			if err := sseWriter.WriteComment("keep-alive"); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				sseWriter.Close()
				return
			}
			if err := sseWriter.WriteEvent(event); err != nil {
				return
			}
		}
	}
}

// handleDelete implements §4.9 DELETE: requires mcp-session-id, 404 if
// unknown, 400 if missing.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}
	if !h.Store.Delete(sessionID) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	resp := mcp.NewErrorResponse(id, code, message)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
