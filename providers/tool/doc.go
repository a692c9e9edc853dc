// Package tool defines the typed tool abstraction the MCP server exposes.
// A [Tool] binds a name and description to a strongly-typed Go function and
// derives JSON schemas for its input and output via reflection; the
// [GenericTool] interface erases the type parameters so tools can be stored
// in a [Catalog] and dispatched by name with JSON-encoded arguments.
package tool
