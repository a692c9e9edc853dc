package comfy

import "errors"

// Sentinel errors surfaced by the execution client. Each marks a fatal,
// non-retried stage; transient polling failures are absorbed by the loop and
// only manifest as an eventual [StatusTimedOut].
var (
	// ErrSubmitFailed is returned by [Client.Submit] on any transport failure
	// or non-success response. Submission is never retried.
	ErrSubmitFailed = errors.New("comfymcp: workflow submission failed")

	// ErrFetchFailed is returned by [Client.FetchAndSave] when the image
	// bytes cannot be retrieved from the backend.
	ErrFetchFailed = errors.New("comfymcp: image fetch failed")

	// ErrWriteFailed is returned by [Client.FetchAndSave] when the image
	// cannot be persisted to the local filesystem.
	ErrWriteFailed = errors.New("comfymcp: image write failed")
)
