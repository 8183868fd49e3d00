package admin

import (
	"encoding/json"
	"net/http"

	"github.com/mcpi-go/mcpi/internal/plugin"
)

// Handler serves the two read-only admin endpoints named in spec.md §6.
type Handler struct {
	Counters *Counters
	Registry *plugin.Registry
}

// NewHandler builds an admin Handler.
func NewHandler(counters *Counters, registry *plugin.Registry) *Handler {
	return &Handler{Counters: counters, Registry: registry}
}

// ServeStats handles GET /api/admin/stats.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Counters.Snapshot())
}

// pluginSummary is one entry of the §6 `/api/admin/plugins` response.
type pluginSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Operations  []string `json:"operations"`
}

// ServePlugins handles GET /api/admin/plugins.
func (h *Handler) ServePlugins(w http.ResponseWriter, r *http.Request) {
	plugins := h.Registry.All()
	summaries := make([]pluginSummary, 0, len(plugins))
	for _, p := range plugins {
		summaries = append(summaries, pluginSummary{
			Name:        p.Name(),
			Description: p.Description(),
			Category:    p.Category(),
			Type:        string(p.Kind()),
			Operations:  p.SupportedOperations(),
		})
	}
	writeJSON(w, map[string]any{"plugins": summaries})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
