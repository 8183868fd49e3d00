package dispatch

import (
	"context"
	"encoding/json"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

// HandleMessage parses raw (a single JSON-RPC envelope, or an array of
// them) and returns the wire-ready response body, or nil if nothing should
// be sent back (a lone notification, or an all-notification batch). This is
// the single entry point both transports (C8, C9) hand inbound bytes to.
//
// Grounded on §4.6 (batch handler invariants I1-I3) and on
// original_source/mcpi-server/src/main.rs's top-level message parse, which
// this generalizes from "always one request" to "request or array".
func HandleMessage(ctx context.Context, d *Dispatcher, raw []byte, opts Options) []byte {
	var probe json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		errResp := mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error: "+err.Error())
		out, _ := json.Marshal(errResp)
		return out
	}

	trimmed := firstNonSpace(probe)
	if trimmed == '[' {
		return handleBatch(ctx, d, probe, opts)
	}
	return handleSingle(ctx, d, probe, opts)
}

func firstNonSpace(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

func handleSingle(ctx context.Context, d *Dispatcher, raw json.RawMessage, opts Options) []byte {
	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		errResp := mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error: "+err.Error())
		out, _ := json.Marshal(errResp)
		return out
	}

	resp := d.Dispatch(ctx, &req, opts)
	if resp == nil {
		return nil
	}
	out, _ := json.Marshal(resp)
	return out
}

// handleBatch decomposes a JSON array into individual envelopes (I1),
// dispatches each, drops notification responses, and rejoins the
// non-notification responses preserving request order (I2). An
// all-notification batch yields no response body (§4.6).
func handleBatch(ctx context.Context, d *Dispatcher, raw json.RawMessage, opts Options) []byte {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		errResp := mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error: "+err.Error())
		out, _ := json.Marshal(errResp)
		return out
	}

	responses := make([]*mcp.JSONRPCResponse, 0, len(rawItems))
	for _, item := range rawItems {
		var req mcp.JSONRPCRequest
		if err := json.Unmarshal(item, &req); err != nil {
			responses = append(responses, mcp.NewErrorResponse(nil, mcp.ParseError, "Parse error: "+err.Error()))
			continue
		}
		if resp := d.Dispatch(ctx, &req, opts); resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		return nil
	}
	out, _ := json.Marshal(responses)
	return out
}
