// Package streamable implements the streamable HTTP transport (C9): session
// lifecycle, the SSE fan-out broadcaster, and the POST/GET/DELETE handlers
// at /mcp. Grounded on the teacher's internal/gateway/session.go
// (SessionManager), internal/gateway/sse.go (SSEHub/SSEManager), and
// internal/gateway/handler.go (HandleMCP), trimmed of everything tied to
// upstream targets, JWT identity, and Postgres persistence — this transport
// has no upstream to proxy to and no cross-restart session state (§3, §9
// Non-goals).
package streamable

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcpi-go/mcpi/internal/telemetry"
)

// Session is a single streamable-HTTP client's identity: an id, a broadcaster
// its SSE subscribers read from, the last-event-id it reported on resume,
// and a liveness deadline. §3: "at most one session per id".
type Session struct {
	ID          string
	CreatedAt   time.Time
	Broadcaster *Broadcaster

	mu           sync.Mutex
	lastEventID  string
	lastActivity time.Time
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		Broadcaster:  NewBroadcaster(),
		lastActivity: now,
	}
}

// Touch refreshes the session's idle deadline.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) expired(timeout time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity.Before(timeout)
}

// SetLastEventID records the client's Last-Event-ID on resume (§4.9: the
// server "need not replay history beyond a best-effort scan of still-buffered
// events").
func (s *Session) SetLastEventID(id string) {
	s.mu.Lock()
	s.lastEventID = id
	s.mu.Unlock()
}

// LastEventID returns the most recently recorded resume point.
func (s *Session) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

// Store is the process-wide, RWMutex-guarded session table (§5: "reader/writer
// lock over a mapping from session id to session; writers are GET/DELETE,
// POST is a reader"). Grounded on gateway.SessionManager, stripped of its
// database-backed fallback and JWT-identity recycling.
type Store struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	idleTimeout     time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// NewStore builds a session table whose cleanup loop removes sessions idle
// longer than idleTimeout, checking every cleanupInterval.
func NewStore(idleTimeout, cleanupInterval time.Duration) *Store {
	st := &Store{
		sessions:        make(map[string]*Session),
		idleTimeout:     idleTimeout,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go st.cleanupLoop()
	return st
}

// Create allocates and registers a fresh session.
func (st *Store) Create() *Session {
	s := newSession()
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	if telemetry.MCPSessionsActive != nil {
		telemetry.MCPSessionsActive.Add(context.Background(), 1)
	}
	log.Info().Str("session_id", s.ID).Msg("streamable session created")
	return s
}

// Get looks up a session by id, touching its idle deadline on hit.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Delete removes a session and closes its broadcaster, reporting whether it
// existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	if ok {
		s.Broadcaster.Close()
		if telemetry.MCPSessionsActive != nil {
			telemetry.MCPSessionsActive.Add(context.Background(), -1)
		}
		log.Info().Str("session_id", id).Msg("streamable session deleted")
	}
	return ok
}

// Count returns the number of live sessions, for the admin stats surface.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) cleanupLoop() {
	ticker := time.NewTicker(st.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.cleanup()
		case <-st.stopCleanup:
			return
		}
	}
}

func (st *Store) cleanup() {
	deadline := time.Now().Add(-st.idleTimeout)
	st.mu.Lock()
	var expired []string
	for id, s := range st.sessions {
		if s.expired(deadline) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		st.sessions[id].Broadcaster.Close()
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	if len(expired) > 0 {
		if telemetry.MCPSessionsActive != nil {
			telemetry.MCPSessionsActive.Add(context.Background(), -int64(len(expired)))
		}
		log.Debug().Int("count", len(expired)).Msg("cleaned up idle streamable sessions")
	}
}

// Stop halts the cleanup loop. Call during graceful shutdown (§4.9).
func (st *Store) Stop() {
	close(st.stopCleanup)
}

// Shutdown closes every live session's broadcaster, terminating their SSE
// streams with a close frame as part of graceful shutdown.
func (st *Store) Shutdown(ctx context.Context) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		s.Broadcaster.Close()
		delete(st.sessions, id)
	}
}
