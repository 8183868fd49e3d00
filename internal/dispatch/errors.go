// Package dispatch implements the JSON-RPC method dispatcher and batch
// handler (C5/C6): it parses a single envelope, routes it to one handler
// per method, and formats the response, then composes that over arrays for
// batched requests. Grounded on
// original_source/mcpi-server/src/main.rs's process_mcp_message/handle_*
// functions and on the teacher's internal/gateway/handler.go request-routing
// shape, adapted from proxying upstream targets to dispatching against a
// local plugin registry.
package dispatch

import "fmt"

// ErrPluginNotFound is returned when a tools/call or resources/read
// references a plugin name the registry doesn't have.
type ErrPluginNotFound struct{ Name string }

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.Name)
}

// ErrInvalidParams signals a malformed or missing params object for methods
// that require one.
type ErrInvalidParams struct{ Reason string }

func (e ErrInvalidParams) Error() string {
	return fmt.Sprintf("invalid params: %s", e.Reason)
}

// ErrInvalidURI signals a resources/read uri that isn't a well-formed mcpi
// resource reference.
type ErrInvalidURI struct{ URI string }

func (e ErrInvalidURI) Error() string {
	return fmt.Sprintf("invalid resource uri: %s", e.URI)
}
