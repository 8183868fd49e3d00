package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level metric instruments. When OTel is disabled these are no-op.
var (
	MCPRequestsTotal        metric.Int64Counter
	MCPRequestDuration      metric.Float64Histogram
	MCPToolCallsTotal       metric.Int64Counter
	MCPToolCallDuration     metric.Float64Histogram
	MCPSSEConnectionsActive metric.Int64UpDownCounter
	MCPSessionsActive       metric.Int64UpDownCounter
)

// InitMetrics registers all custom MCP metrics.
// Safe to call even when OTel is disabled (instruments become no-op).
func InitMetrics() {
	meter := otel.Meter("mcpi-server")

	MCPRequestsTotal, _ = meter.Int64Counter("mcp.requests.total",
		metric.WithDescription("Total JSON-RPC requests dispatched"),
	)
	MCPRequestDuration, _ = meter.Float64Histogram("mcp.request.duration",
		metric.WithDescription("JSON-RPC request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	MCPToolCallsTotal, _ = meter.Int64Counter("mcp.tool.calls.total",
		metric.WithDescription("Total tools/call invocations"),
	)
	MCPToolCallDuration, _ = meter.Float64Histogram("mcp.tool.call.duration",
		metric.WithDescription("tools/call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	MCPSSEConnectionsActive, _ = meter.Int64UpDownCounter("mcp.sse.connections.active",
		metric.WithDescription("Currently open SSE subscriber streams"),
	)
	MCPSessionsActive, _ = meter.Int64UpDownCounter("mcp.sessions.active",
		metric.WithDescription("Currently active streamable-HTTP sessions"),
	)
}
