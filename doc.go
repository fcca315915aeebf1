// Package mcphost turns any Model Context Protocol (MCP) server into a set of
// ordinarily callable Go functions. It launches the server as a child process,
// speaks newline-framed JSON-RPC 2.0 over the process's standard streams, and
// exposes the tools the server advertises as synchronous calls, following the
// protocol specification at https://spec.modelcontextprotocol.io/specification/.
//
// The typical entry point is Load, which starts the server, performs the
// initialize handshake, discovers the tool catalog, and returns a Server whose
// tools can be invoked by name from any goroutine.
package mcphost
