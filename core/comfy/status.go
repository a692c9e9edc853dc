package comfy

// Status is the observable state of a submitted job. Transitions are driven
// only by the polling loop: Submitted → {Queued, Running}* → Completed |
// Failed | TimedOut. Terminal states never transition further.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether the status ends the polling loop.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Handle is the opaque job identifier returned by the backend on submission.
// It is created by Submit, consumed by PollForCompletion, and never reused
// across jobs.
type Handle string

// OutputRef locates one produced image on the backend. The fields mirror the
// image descriptor the history endpoint reports and are passed verbatim as
// query parameters to the retrieval endpoint.
type OutputRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// PollResult is the outcome of one polling loop. Output is non-nil only for
// StatusCompleted; FailureReason is set only for StatusFailed.
// TransientErrors counts transport failures the loop absorbed on the way to
// the terminal state.
type PollResult struct {
	Status          Status
	Output          *OutputRef
	FailureReason   string
	TransientErrors int
}

// OutputMode selects what FetchAndSave produces: a direct backend locator or
// a local file.
type OutputMode string

const (
	OutputModeURL  OutputMode = "url"
	OutputModeFile OutputMode = "file"
)

// SavedImage is the final artifact of a job. In url mode only URL is set; in
// file mode Path holds the written file and Bytes the image content.
type SavedImage struct {
	URL   string
	Path  string
	Bytes []byte
}
