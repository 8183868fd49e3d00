package discovery

import (
	"encoding/json"
	"net/http"

	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/mcp"
	"github.com/mcpi-go/mcpi/internal/plugin"
)

// Responder serves GET /mcpi/discover (C7), grounded on
// original_source/mcpi-server/src/main.rs's discovery_handler and mounted
// the way the teacher mounts chi routes in cmd/server/main.go.
type Responder struct {
	Registry  *plugin.Registry
	Provider  dispatch.ProviderInfo
	Referrals []mcp.Referral
}

func (r *Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	capabilities := make([]mcp.CapabilityDescription, 0)
	for _, p := range r.Registry.All() {
		capabilities = append(capabilities, mcp.CapabilityDescription{
			Name:        p.Name(),
			Description: p.Description(),
			Category:    p.Category(),
			Operations:  p.SupportedOperations(),
		})
	}

	referrals := r.Referrals
	if referrals == nil {
		referrals = []mcp.Referral{}
	}

	resp := mcp.DiscoveryResponse{
		Provider: mcp.Provider{
			Name:        r.Provider.Name,
			Domain:      r.Provider.Domain,
			Description: r.Provider.Description,
		},
		Mode:         "active",
		Capabilities: capabilities,
		Referrals:    referrals,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
