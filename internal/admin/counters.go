// Package admin serves the stats/plugins contract named in spec.md §6 — the
// admin HTML surface itself is out of scope. Grounded in the teacher's
// atomic-counter style (internal/stdio/process.go's nextID/lastUsed
// atomics), generalized from a single counter to the small fixed set of
// process-wide gauges the contract requires.
package admin

import (
	"sync/atomic"
	"time"
)

// Counters are the process-wide atomics fed by the transports and
// dispatcher (§5: "Counters (requests, active connections): atomics.").
type Counters struct {
	startedAt            time.Time
	requestsProcessed    atomic.Int64
	activeWebSocketConns atomic.Int64
	activeStreamSessions func() int
}

// NewCounters builds a Counters whose uptime is measured from now.
// activeStreamSessions reports the live streamable-HTTP session count; pass
// the session store's Count method.
func NewCounters(activeStreamSessions func() int) *Counters {
	return &Counters{startedAt: time.Now(), activeStreamSessions: activeStreamSessions}
}

// IncRequestsProcessed records one dispatched JSON-RPC request or batch item.
func (c *Counters) IncRequestsProcessed() {
	c.requestsProcessed.Add(1)
}

// WebSocketConnected/WebSocketDisconnected track live WebSocket connections.
func (c *Counters) WebSocketConnected() {
	c.activeWebSocketConns.Add(1)
}

func (c *Counters) WebSocketDisconnected() {
	c.activeWebSocketConns.Add(-1)
}

// Stats is the §6 `/api/admin/stats` response shape.
type Stats struct {
	UptimeSeconds              int64 `json:"uptime_seconds"`
	ActiveWebSocketConnections int64 `json:"active_websocket_connections"`
	ActiveHTTPSessions         int   `json:"active_http_sessions"`
	TotalRequestsProcessed     int64 `json:"total_requests_processed"`
}

// Snapshot reads the current counter values.
func (c *Counters) Snapshot() Stats {
	sessions := 0
	if c.activeStreamSessions != nil {
		sessions = c.activeStreamSessions()
	}
	return Stats{
		UptimeSeconds:              int64(time.Since(c.startedAt).Seconds()),
		ActiveWebSocketConnections: c.activeWebSocketConns.Load(),
		ActiveHTTPSessions:         sessions,
		TotalRequestsProcessed:     c.requestsProcessed.Load(),
	}
}
