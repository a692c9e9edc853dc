// Package comfy drives one image-generation job against a remote ComfyUI
// backend: submit the resolved graph, poll the history endpoint until a
// terminal state, then retrieve and persist the produced image.
//
// The flow is strictly sequential per job. Submission is never retried
// (a resubmit risks duplicate job creation), transport errors while polling
// are transient and absorbed by the loop, and the loop itself is bounded by
// an elapsed-time budget so the worst-case wait is easy to reason about.
package comfy
