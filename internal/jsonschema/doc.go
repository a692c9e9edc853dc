// Package jsonschema derives JSON Schema documents from Go struct types via
// reflection. It covers the shapes tool inputs and outputs in this repo
// actually declare — flat structs of primitives, slices, maps, and nested
// structs — and honors `json` tags for property names and a `jsonschema` tag
// for descriptions and the required marker.
package jsonschema
