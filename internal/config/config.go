// Package config builds the process-wide configuration from environment
// variables. The value is constructed once at startup, validated, and passed
// by reference into the resolver and client; nothing in this package reads
// the environment after construction.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultOutputMode persists images locally unless OUTPUT_MODE says "url".
	DefaultOutputMode = "file"
	// DefaultImageSubdir is appended to the working directory when no save
	// path override is supplied.
	DefaultImageSubdir = "img"
	// DefaultSavePath is used when neither a working directory nor an
	// override is configured.
	DefaultSavePath = "./img"
)

// Config holds every environment-derived setting the server consumes.
type Config struct {
	// ComfyURL is the base URL of the ComfyUI backend (required).
	ComfyURL string
	// ComfyURLExternal is the base URL embedded in url-mode locators.
	// Defaults to ComfyURL.
	ComfyURLExternal string
	// WorkflowPath is the template file to load (required).
	WorkflowPath string

	// Node identifier overrides. Empty values mean discovery by title/type.
	PosPromptNodeID   string
	NegPromptNodeID   string
	SavePathNodeID    string
	OutputNodeID      string
	LatentImageNodeID string

	// OutputMode is "file" or "url".
	OutputMode string
	// WorkingDir is the base directory for saved images.
	WorkingDir string

	// PollInterval and MaxWait bound the status polling loop.
	PollInterval time.Duration
	MaxWait      time.Duration

	// OllamaAPIBase and PromptLLM enable the prompt-expansion tool when both
	// are set.
	OllamaAPIBase string
	PromptLLM     string
}

// FromEnvironment reads the configuration from the environment.
//
// The legacy PROMPT_NODE_ID variable predates negative-prompt support; when
// POS_PROMPT_NODE_ID is absent it is treated as the positive identifier so
// existing deployments keep working.
func FromEnvironment() *Config {
	comfyURL := os.Getenv("COMFY_URL")

	posID := os.Getenv("POS_PROMPT_NODE_ID")
	if posID == "" {
		posID = os.Getenv("PROMPT_NODE_ID")
	}

	return &Config{
		ComfyURL:          comfyURL,
		ComfyURLExternal:  envDefault("COMFY_URL_EXTERNAL", comfyURL),
		WorkflowPath:      os.Getenv("COMFY_WORKFLOW_JSON_FILE"),
		PosPromptNodeID:   posID,
		NegPromptNodeID:   os.Getenv("NEG_PROMPT_NODE_ID"),
		SavePathNodeID:    os.Getenv("FILEPATH_NODE_ID"),
		OutputNodeID:      os.Getenv("OUTPUT_NODE_ID"),
		LatentImageNodeID: os.Getenv("LATENT_IMAGE_NODE_ID"),
		OutputMode:        envDefault("OUTPUT_MODE", DefaultOutputMode),
		WorkingDir:        os.Getenv("COMFY_WORKING_DIR"),
		PollInterval:      envDuration("COMFY_POLL_INTERVAL", 5*time.Second),
		MaxWait:           envDuration("COMFY_MAX_WAIT", 5*time.Minute),
		OllamaAPIBase:     os.Getenv("OLLAMA_API_BASE"),
		PromptLLM:         os.Getenv("PROMPT_LLM"),
	}
}

// ValidateRequired collects human-readable messages for missing required
// settings. An empty slice means the configuration is usable.
func (c *Config) ValidateRequired() []string {
	var errs []string
	if c.ComfyURL == "" {
		errs = append(errs, "- COMFY_URL environment variable not set")
	}
	if c.WorkflowPath == "" {
		errs = append(errs, "- COMFY_WORKFLOW_JSON_FILE environment variable not set")
	}
	if c.OutputMode != "file" && c.OutputMode != "url" {
		errs = append(errs, fmt.Sprintf("- OUTPUT_MODE must be \"file\" or \"url\", got %q", c.OutputMode))
	}
	return errs
}

// HasOllamaConfig reports whether the prompt-expansion tool can be enabled.
func (c *Config) HasOllamaConfig() bool {
	return c.OllamaAPIBase != "" && c.PromptLLM != ""
}

// SaveDir resolves the directory images are written to: the per-call
// override when given, otherwise the configured working directory's image
// subdirectory, otherwise the built-in default.
func (c *Config) SaveDir(override string) string {
	if override != "" {
		return filepath.Clean(override)
	}
	if c.WorkingDir != "" {
		return filepath.Join(c.WorkingDir, DefaultImageSubdir)
	}
	return filepath.Clean(DefaultSavePath)
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
