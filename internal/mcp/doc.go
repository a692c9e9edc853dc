// Package mcp implements a minimal Model Context Protocol server over stdio.
// Messages are newline-delimited JSON-RPC 2.0; the server answers the
// handshake (initialize, ping) and serves tools/list and tools/call from a
// tool catalog. Tool execution errors are reported as isError tool results
// rather than protocol errors, per the MCP specification.
package mcp
