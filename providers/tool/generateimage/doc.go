// Package generateimage exposes image generation as a callable tool: it
// injects the caller's prompts into a pre-resolved workflow template, submits
// the graph to the ComfyUI backend, waits for completion, and returns either
// a local file path or a retrieval URL depending on the configured output
// mode. Node roles are bound once at construction, from explicit identifiers
// in the configuration or by title/type discovery.
package generateimage
