// Package workflow loads saved ComfyUI node-graph templates and prepares them
// for submission. A template arrives in one of two on-disk representations:
// the editor export (a node array plus a link table) or the execution form
// (an id-keyed node mapping accepted directly by the backend). The loader
// detects which one it was given and normalizes to the execution form.
//
// The main entry points are [Load], [Template.ResolveRole] for locating the
// nodes that play a logical role (positive prompt, negative prompt, output),
// and [Template.Job] for producing a mutable copy that prompt text and path
// values can be injected into before submission.
package workflow
