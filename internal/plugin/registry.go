package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyRegistered is returned by Register when name is already taken.
type ErrAlreadyRegistered struct{ Name string }

func (e ErrAlreadyRegistered) Error() string {
	return fmt.Sprintf("plugin %q is already registered", e.Name)
}

// ErrNotFound is returned by Get/Execute when name has no registered plugin.
type ErrNotFound struct{ Name string }

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("plugin %q not found", e.Name)
}

// Registry is the RWMutex-guarded name->plugin map every dispatcher method
// consults. Populated at startup only; reads thereafter take the read lock,
// mirroring the teacher's gateway.SessionManager map-of-sessions idiom
// (internal/gateway/session.go) generalized from sessions to plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds plugin under its own Name(), failing if that name is taken.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return ErrAlreadyRegistered{Name: name}
	}
	r.plugins[name] = p
	log.Info().Str("plugin", name).Str("category", p.Category()).Msg("plugin registered")
	return nil
}

// Get returns the plugin registered under name, if any.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// All returns every registered plugin in an unspecified order.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	return out
}

// Execute looks up name and delegates to its Execute, surfacing ErrNotFound
// when the name is unregistered.
func (r *Registry) Execute(ctx context.Context, name, operation string, arguments json.RawMessage) (json.RawMessage, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, ErrNotFound{Name: name}
	}
	return p.Execute(ctx, operation, arguments)
}
