// Package discovery implements both sides of DNS-TXT based MCP endpoint
// discovery: the server-side fixed-path responder (C7) and the client-side
// DNS-over-HTTPS resolver (C10). Grounded verbatim on
// original_source/mcpi-client/src/discovery.rs's
// discover_mcp_services/parse_mcp_txt_record.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ServiceInfo is the resolved discovery endpoint plus the protocol version
// the TXT record advertised.
type ServiceInfo struct {
	Endpoint string
	Version  string
}

// Error is a distinguishable discovery failure, mirroring the original's
// McpDiscoveryError so callers can report discovery failures without
// mistaking them for transport errors.
type Error struct{ Message string }

func (e Error) Error() string { return "MCP Discovery Error: " + e.Message }

var validSchemes = map[string]bool{"ws": true, "wss": true, "http": true, "https": true}

type googleDNSAnswer struct {
	Type int    `json:"type"`
	Data string `json:"data"`
}

type googleDNSResponse struct {
	Answer []googleDNSAnswer `json:"Answer"`
	Status int               `json:"Status"`
}

const dnsTypeTXT = 16

// Client resolves MCP discovery endpoints via Google's DNS-over-HTTPS JSON
// API. No DNS library dependency is taken deliberately, matching the
// original's "no subprocess dependency" design: DoH needs nothing but an
// HTTP client and a JSON decoder.
type Client struct {
	HTTPClient *http.Client
}

// NewClient builds a Client using http.DefaultClient if httpClient is nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTPClient: httpClient}
}

// Discover resolves the `_mcp.<domain>` TXT record and parses it into a
// ServiceInfo.
func (c *Client) Discover(ctx context.Context, domain string) (*ServiceInfo, error) {
	recordName := fmt.Sprintf("_mcp.%s", domain)
	requestURL := fmt.Sprintf("https://dns.google/resolve?name=%s&type=TXT", recordName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, Error{Message: fmt.Sprintf("building DoH request failed: %s", err)}
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, Error{Message: fmt.Sprintf("HTTP request to Google DoH failed: %s", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Error{Message: fmt.Sprintf("Google DoH request failed with HTTP status: %d", resp.StatusCode)}
	}

	var dnsResp googleDNSResponse
	if err := json.NewDecoder(resp.Body).Decode(&dnsResp); err != nil {
		return nil, Error{Message: fmt.Sprintf("Failed to parse JSON response from Google DoH: %s", err)}
	}

	if dnsResp.Status != 0 {
		return nil, Error{Message: fmt.Sprintf("Google DoH reported DNS error status %d for %s", dnsResp.Status, recordName)}
	}

	if len(dnsResp.Answer) == 0 {
		return nil, Error{Message: fmt.Sprintf("No MCP TXT records found via Google DoH for %s", recordName)}
	}

	for _, ans := range dnsResp.Answer {
		if ans.Type != dnsTypeTXT {
			continue
		}
		unquoted := strings.Trim(ans.Data, "\"")
		return parseMCPTXTRecord(unquoted)
	}

	return nil, Error{Message: fmt.Sprintf("No TXT records found in Google DoH answer for %s", recordName)}
}

// parseMCPTXTRecord parses a whitespace-separated key=value TXT payload.
// Recognised keys: v (protocol version, default "mcp1"), url (required,
// must use scheme ws/wss/http/https). Unknown keys are ignored.
func parseMCPTXTRecord(content string) (*ServiceInfo, error) {
	txt := strings.TrimSpace(content)
	version := "mcp1"
	var endpoint string
	haveEndpoint := false

	for _, part := range strings.Fields(txt) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "v":
			version = value
		case "url":
			endpoint = value
			haveEndpoint = true
		}
	}

	if !haveEndpoint {
		return nil, Error{Message: "No endpoint URL (url=...) found in TXT record"}
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, Error{Message: fmt.Sprintf("failed to parse endpoint URL: %s", err)}
	}
	if !validSchemes[parsed.Scheme] {
		return nil, Error{Message: fmt.Sprintf("Invalid endpoint protocol scheme: '%s'. Expected ws, wss, http, or https.", parsed.Scheme)}
	}

	return &ServiceInfo{Endpoint: endpoint, Version: version}, nil
}

// Endpoints derives the base discovery URL, WebSocket URL, and streamable
// HTTP URL from a resolved discovery endpoint (§4.10).
type Endpoints struct {
	Base       string
	WebSocket  string
	Streamable string
}

// DeriveEndpoints strips the trailing "/mcpi/discover" from the discovery
// endpoint to get the base, then derives the WebSocket URL (scheme swapped
// http->ws/https->wss, path "/mcpi") and the streamable HTTP URL (path
// "/mcp").
func DeriveEndpoints(discoveryEndpoint string) (*Endpoints, error) {
	base := strings.TrimSuffix(discoveryEndpoint, "/mcpi/discover")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, Error{Message: fmt.Sprintf("failed to parse base URL: %s", err)}
	}

	wsScheme := parsed.Scheme
	switch parsed.Scheme {
	case "http":
		wsScheme = "ws"
	case "https":
		wsScheme = "wss"
	}
	wsURL := *parsed
	wsURL.Scheme = wsScheme
	wsURL.Path = "/mcpi"

	streamableURL := *parsed
	streamableURL.Path = "/mcp"

	return &Endpoints{
		Base:       base,
		WebSocket:  wsURL.String(),
		Streamable: streamableURL.String(),
	}, nil
}
