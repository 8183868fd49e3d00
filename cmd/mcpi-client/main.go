// Command mcpi-client is a scripted exerciser for an MCP/MCPI server (C11):
// discover, connect, initialize, list, batch, synthesize a tools/call per
// advertised operation, and ping. Grounded on
// original_source/mcpi-client/src/main.rs's command sequence, re-expressed
// against internal/clientdriver instead of tokio-tungstenite + reqwest.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mcpi-go/mcpi/internal/clientdriver"
	"github.com/mcpi-go/mcpi/internal/discovery"
	"github.com/mcpi-go/mcpi/internal/mcp"
)

func main() {
	domain := flag.String("domain", "", "domain to discover MCPI services from (uses DNS TXT records)")
	url := flag.String("url", "", "direct WebSocket URL of the MCPI server, e.g. ws://localhost:3001/mcpi; the discovery URL is derived from it (bypasses DNS discovery)")
	flag.StringVar(domain, "d", *domain, "shorthand for -domain")
	flag.StringVar(url, "u", *url, "shorthand for -url")
	flag.Parse()

	if err := run(*domain, *url); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(domain, directURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	discoveryURL := "http://localhost:3001/mcpi/discover"
	wsURL := "ws://localhost:3001/mcpi"

	switch {
	case domain != "":
		fmt.Printf("Performing DNS-based discovery for domain: %s\n", domain)
		info, err := discovery.NewClient(http.DefaultClient).Discover(ctx, domain)
		if err != nil {
			fmt.Printf("DNS discovery failed: %v. Falling back to default URL.\n", err)
		} else {
			fmt.Println("Discovered MCP service:")
			fmt.Printf("  Version: %s\n", info.Version)
			fmt.Printf("  Endpoint: %s\n", info.Endpoint)
			discoveryURL = info.Endpoint
			fmt.Printf("Using discovery endpoint: %s\n", discoveryURL)
		}
	case directURL != "":
		wsURL = directURL
		discoveryURL = deriveDiscoveryURL(wsURL)
		fmt.Printf("Using provided server URL: %s\n", wsURL)
		fmt.Printf("Derived discovery URL: %s\n", discoveryURL)
	}

	fmt.Println("Discovering MCPI service capabilities via HTTP...")
	disco, err := discoverServiceHTTP(ctx, discoveryURL)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	fmt.Printf("Connected to: %s (%s)\n", disco.Provider.Name, disco.Provider.Domain)
	fmt.Printf("Mode: %s\n", disco.Mode)

	fmt.Println("\nAvailable capabilities:")
	for _, cap := range disco.Capabilities {
		fmt.Printf("  - %s (%s): %s\n", cap.Name, cap.Category, cap.Description)
		fmt.Printf("    Operations: %s\n", strings.Join(cap.Operations, ", "))
	}

	fmt.Println("\nReferrals:")
	for _, ref := range disco.Referrals {
		fmt.Printf("  - %s (%s): %s\n", ref.Name, ref.Domain, ref.Relationship)
	}

	if domain != "" && directURL == "" {
		endpoints, err := discovery.DeriveEndpoints(discoveryURL)
		if err == nil {
			wsURL = endpoints.WebSocket
			fmt.Printf("\nDerived WebSocket URL for connection: %s\n", wsURL)
		}
	}

	fmt.Println("\nConnecting to MCPI service via WebSocket (MCP protocol)...")
	fmt.Printf("Connecting to: %s\n", wsURL)
	client, err := clientdriver.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()
	fmt.Println("WebSocket connection established")

	return drive(ctx, client, disco)
}

func deriveDiscoveryURL(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return strings.Replace(strings.Replace(wsURL, "wss://", "https://", 1), "/mcpi", "/mcpi/discover", 1)
	case strings.HasPrefix(wsURL, "ws://"):
		return strings.Replace(strings.Replace(wsURL, "ws://", "http://", 1), "/mcpi", "/mcpi/discover", 1)
	default:
		return wsURL
	}
}

func discoverServiceHTTP(ctx context.Context, url string) (*mcp.DiscoveryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out mcp.DiscoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// drive runs the scripted sequence against an already-connected client
// (§4.11 steps 3-5).
func drive(ctx context.Context, client *clientdriver.Client, disco *mcp.DiscoveryResponse) error {
	initResult, err := client.Initialize(ctx, "0.1.0", "MCPI Test Client", "0.1.0")
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	fmt.Println("\nMCP connection initialized:")
	fmt.Printf("  Server: %s v%s\n", initResult.ServerInfo.Name, initResult.ServerInfo.Version)
	fmt.Printf("  Protocol: v%s\n", initResult.ProtocolVersion)
	if initResult.Instructions != "" {
		fmt.Printf("  Instructions: %s\n", initResult.Instructions)
	}

	resources, err := client.ListResources(ctx)
	if err != nil {
		return fmt.Errorf("resources/list: %w", err)
	}
	fmt.Println("\nAvailable MCP resources:")
	for _, r := range resources.Resources {
		fmt.Printf("  - %s (%s)\n", r.Name, r.URI)
		if r.Description != "" {
			fmt.Printf("    Description: %s\n", r.Description)
		}
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	fmt.Println("\nAvailable MCP tools:")
	for _, tool := range tools.Tools {
		fmt.Printf("  - %s\n", tool.Name)
		if tool.Description != "" {
			fmt.Printf("    Description: %s\n", tool.Description)
		}
		if ops := clientdriver.OperationsFromSchema(tool.InputSchema); len(ops) > 0 {
			fmt.Printf("    Input Schema: Operations supported:\n      %s\n", strings.Join(ops, ", "))
		}
	}

	fmt.Println("\nSending two-item batch (ping + resources/list)...")
	batchResp, err := client.Batch(ctx)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	fmt.Printf("  Received %d responses\n", len(batchResp))

	for _, tool := range tools.Tools {
		ops := clientdriver.OperationsFromSchema(tool.InputSchema)
		if len(ops) == 0 {
			ops = []string{"SEARCH"}
		}
		for _, op := range ops {
			args := clientdriver.SynthesizeArguments(tool.InputSchema, op)
			fmt.Printf("\nCalling %s tool with %s operation...\n", tool.Name, op)
			result, err := client.CallTool(ctx, tool.Name, args)
			if err != nil {
				fmt.Printf("  Error: %v\n", err)
				continue
			}
			printToolResult(result)
		}
	}

	fmt.Println("\nSending final ping...")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("\nPing error: %v\n", err)
	} else {
		fmt.Println("\nPing successful, connection healthy")
	}

	fmt.Println("\nClosing MCP connection")
	return nil
}

func printToolResult(result *mcp.ToolCallResult) {
	suffix := ""
	if result.IsError {
		suffix = " (ERROR)"
	}
	fmt.Printf("Tool call result%s:\n", suffix)
	for _, content := range result.Content {
		if content.Type != "text" {
			continue
		}
		if result.IsError {
			fmt.Printf("  Error: %s\n", content.Text)
			continue
		}
		fmt.Printf("  %s\n", content.Text)
	}
}
