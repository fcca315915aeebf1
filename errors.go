package mcphost

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for state violations. They are returned wrapped with
// operation context, so test with errors.Is.
var (
	// ErrNotConnected is returned when a transport operation is attempted
	// before Connect or after Close.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionClosed is returned when the peer closes its output stream
	// without producing a full message.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrNotReady is returned when a protocol operation is attempted before
	// the initialize handshake has completed.
	ErrNotReady = errors.New("client not initialized")

	// ErrRunnerClosed is returned when work is submitted to a Runner after
	// its Close.
	ErrRunnerClosed = errors.New("runner closed")
)

// LaunchError reports that the peer process could not be started.
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ProtocolError reports a frame that could not be parsed as a JSON-RPC message.
// Line holds the offending input, truncated for readability.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed message %q: %v", e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// HandshakeError reports that the peer rejected the initialize request.
// Message preserves the peer's own error message verbatim.
type HandshakeError struct {
	Message string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("initialize failed: %s", e.Message)
}

// DiscoveryError reports a peer-side error envelope on a catalog listing
// request. Method names the listing that failed.
type DiscoveryError struct {
	Method string
	Err    *JSONRPCError
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, e.Err.Message)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// InvocationError reports that a tool call failed on the peer side, either as
// a JSON-RPC error envelope or as a result flagged isError. The peer's message
// is preserved verbatim.
type InvocationError struct {
	Tool    string
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %s", e.Tool, e.Message)
}

// UnknownToolError reports a call to a tool name absent from the catalog.
// Available lists the currently known tool names so the caller can act on it.
type UnknownToolError struct {
	Name      string
	Available []string
}

func (e *UnknownToolError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("tool %q not found, server exposes no tools", e.Name)
	}
	return fmt.Sprintf("tool %q not found, available tools: %s", e.Name, strings.Join(e.Available, ", "))
}
