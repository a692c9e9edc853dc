package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leofalp/comfymcp/core/workflow"
)

const (
	// DefaultPollInterval is the wait between status queries.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxWait is the overall elapsed-time budget for one polling loop.
	DefaultMaxWait = 5 * time.Minute
)

// Client talks to one ComfyUI backend. It is safe for concurrent use: each
// job owns its own handle and polling loop, and the client itself holds only
// read-only configuration.
type Client struct {
	baseURL     string
	externalURL string
	httpClient  *http.Client
	interval    time.Duration
	maxWait     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithExternalURL sets the base URL embedded in url-mode locators, for
// setups where the address callers can reach differs from the one the
// server uses internally.
func WithExternalURL(u string) Option {
	return func(c *Client) { c.externalURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval sets the wait between status queries.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithMaxWait sets the elapsed-time budget for one polling loop.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) { c.maxWait = d }
}

// WithLogger sets the logger used for poll progress and transient errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		interval:   DefaultPollInterval,
		maxWait:    DefaultMaxWait,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.externalURL == "" {
		c.externalURL = c.baseURL
	}
	return c
}

// submitResponse is the body of a successful submission.
type submitResponse struct {
	PromptID string `json:"prompt_id"`
}

// Submit serializes the resolved graph and sends it to the backend's
// submission endpoint. Any transport failure or non-success response is
// fatal and surfaces as [ErrSubmitFailed] immediately; submission is not
// retried because a resubmit risks creating a duplicate job.
func (c *Client) Submit(ctx context.Context, job *workflow.Job) (Handle, error) {
	payload, err := json.Marshal(map[string]any{"prompt": job})
	if err != nil {
		return "", fmt.Errorf("%w: encoding graph: %v", ErrSubmitFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	defer closeBody(res.Body, c.logger)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrSubmitFailed, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmitFailed, res.StatusCode, truncate(string(body), 200))
	}

	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrSubmitFailed, err)
	}
	if sr.PromptID == "" {
		return "", fmt.Errorf("%w: backend returned no prompt id", ErrSubmitFailed)
	}

	c.logger.Info("workflow submitted", "prompt_id", sr.PromptID)
	return Handle(sr.PromptID), nil
}

// historyEntry is one job record in the history endpoint's response.
type historyEntry struct {
	Status struct {
		Completed bool   `json:"completed"`
		StatusStr string `json:"status_str"`
	} `json:"status"`
	Outputs map[string]struct {
		Images []OutputRef `json:"images"`
	} `json:"outputs"`
}

// PollForCompletion queries the backend's history endpoint for the handle
// until a terminal state is observed or the elapsed-time budget runs out.
//
// Classification: handle absent from the history means the job is still
// queued; present but not completed means running; a completed entry with an
// error status_str is a failure carrying the backend-reported reason. A
// transport error while polling does not terminate the loop — it is counted,
// logged, and the loop continues after the poll interval.
//
// The output reference is extracted from the history entry's outputs under
// outputNodeID. The call blocks; errors are returned only for context
// cancellation, every other outcome is expressed in the PollResult status.
func (c *Client) PollForCompletion(ctx context.Context, handle Handle, outputNodeID string) (*PollResult, error) {
	deadline := c.now().Add(c.maxWait)
	transient := 0

	for {
		entry, status, err := c.queryHistory(ctx, handle)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			transient++
			c.logger.Warn("status query failed, will retry", "prompt_id", string(handle), "attempt_errors", transient, "error", err)
		case status.Terminal():
			result := &PollResult{Status: status, TransientErrors: transient}
			if status == StatusFailed {
				result.FailureReason = entry.Status.StatusStr
				return result, nil
			}
			ref, err := extractOutput(entry, outputNodeID)
			if err != nil {
				result.Status = StatusFailed
				result.FailureReason = err.Error()
				return result, nil
			}
			result.Output = ref
			return result, nil
		default:
			c.logger.Debug("job not finished", "prompt_id", string(handle), "status", string(status))
		}

		if !c.now().Before(deadline) {
			c.logger.Warn("polling budget exhausted", "prompt_id", string(handle), "max_wait", c.maxWait, "transient_errors", transient)
			return &PollResult{Status: StatusTimedOut, TransientErrors: transient}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.interval):
		}
	}
}

// queryHistory performs one status query and classifies the response.
func (c *Client) queryHistory(ctx context.Context, handle Handle) (*historyEntry, Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(string(handle)), nil)
	if err != nil {
		return nil, "", err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer closeBody(res.Body, c.logger)

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", fmt.Errorf("status %d: %s", res.StatusCode, truncate(string(body), 200))
	}

	var history map[string]historyEntry
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, "", fmt.Errorf("decoding history: %w", err)
	}

	entry, ok := history[string(handle)]
	if !ok {
		return nil, StatusQueued, nil
	}
	if !entry.Status.Completed {
		if strings.EqualFold(entry.Status.StatusStr, "error") {
			return &entry, StatusFailed, nil
		}
		return &entry, StatusRunning, nil
	}
	if strings.EqualFold(entry.Status.StatusStr, "error") {
		return &entry, StatusFailed, nil
	}
	return &entry, StatusCompleted, nil
}

// extractOutput pulls the first image descriptor from the history entry's
// outputs for the output node.
func extractOutput(entry *historyEntry, outputNodeID string) (*OutputRef, error) {
	nodeOutputs, ok := entry.Outputs[outputNodeID]
	if !ok {
		return nil, fmt.Errorf("history entry has no outputs for node %q", outputNodeID)
	}
	if len(nodeOutputs.Images) == 0 {
		return nil, fmt.Errorf("output node %q produced no images", outputNodeID)
	}
	ref := nodeOutputs.Images[0]
	return &ref, nil
}

// FetchAndSave turns an output reference into the final artifact.
//
// In url mode the externally reachable retrieval locator is returned without
// downloading anything. In file mode the bytes are fetched from the backend
// and written under saveDir (created if absent, time tokens expanded) with a
// timestamp-derived filename that keeps the source file's extension. Both
// failure modes are terminal for the call; nothing is retried.
func (c *Client) FetchAndSave(ctx context.Context, ref OutputRef, mode OutputMode, saveDir string) (*SavedImage, error) {
	query := url.Values{}
	query.Set("filename", ref.Filename)
	query.Set("subfolder", ref.Subfolder)
	query.Set("type", ref.Type)

	if mode == OutputModeURL {
		return &SavedImage{URL: c.externalURL + "/view?" + query.Encode()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer closeBody(res.Body, c.logger)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading image: %v", ErrFetchFailed, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, res.StatusCode)
	}

	now := c.now()
	dir := filepath.Clean(workflow.SubstituteTokens(saveDir, now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrWriteFailed, dir, err)
	}

	ext := filepath.Ext(ref.Filename)
	if ext == "" {
		ext = ".png"
	}
	path := filepath.Join(dir, workflow.Timestamp(now)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %v", ErrWriteFailed, path, err)
	}

	c.logger.Info("image saved", "path", path, "bytes", len(data))
	return &SavedImage{Path: path, Bytes: data}, nil
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if err := body.Close(); err != nil {
		logger.Warn("failed to close response body", "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
