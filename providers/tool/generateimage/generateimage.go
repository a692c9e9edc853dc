package generateimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leofalp/comfymcp/core/comfy"
	"github.com/leofalp/comfymcp/core/workflow"
	"github.com/leofalp/comfymcp/internal/config"
	"github.com/leofalp/comfymcp/providers/tool"
)

// Discovery hints per role, used when the configuration carries no explicit
// node identifier. Titles must match exactly; the type-only fallback handles
// untitled nodes.
const (
	positiveTitleHint = "Positive"
	negativeTitleHint = "Negative"
	promptTypeHint    = "CLIPTextEncode"
	savePathTitleHint = "Save Path"
	savePathTypeHint  = "Text String"
	outputTitleHint   = "Save Image"
	outputTypeHint    = "SaveImage"
	latentTitleHint   = "Empty Latent Image"
	latentTypeHint    = "EmptyLatentImage"
)

// Input are the arguments of one generation call.
type Input struct {
	PositivePrompt string `json:"positive_prompt" jsonschema:"description=What the image should contain,required"`
	NegativePrompt string `json:"negative_prompt,omitempty" jsonschema:"description=What the image should avoid"`
	SavePath       string `json:"save_path,omitempty" jsonschema:"description=Directory to save the image into; time tokens like {timestamp} are expanded"`
	Width          int    `json:"width,omitempty" jsonschema:"description=Image width in pixels"`
	Height         int    `json:"height,omitempty" jsonschema:"description=Image height in pixels"`
}

// Output is the artifact reference: exactly one of Path (file mode) or URL
// (url mode) is set.
type Output struct {
	Path string `json:"path,omitempty" jsonschema:"description=Local path of the saved image"`
	URL  string `json:"url,omitempty" jsonschema:"description=Direct retrieval URL of the image"`
}

// Bindings are the node identifiers each role resolved to. Positive and
// Output are always set; the others are empty when neither configuration nor
// discovery produced a node.
type Bindings struct {
	Positive    string
	Negative    string
	SavePath    string
	Output      string
	LatentImage string
}

// Generator owns one loaded template, its role bindings, and the execution
// client. It is safe for concurrent calls: every call builds its own job.
type Generator struct {
	cfg      *config.Config
	template *workflow.Template
	client   *comfy.Client
	bindings Bindings
	logger   *slog.Logger
}

// New loads the configured template and binds the node roles. The positive
// prompt and output roles must resolve; negative prompt, save path, and
// latent image are optional and simply stay unbound when absent.
func New(cfg *config.Config, client *comfy.Client, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	template, err := workflow.Load(cfg.WorkflowPath)
	if err != nil {
		return nil, err
	}

	bindings, err := resolveBindings(template, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("workflow roles bound",
		"positive", bindings.Positive,
		"negative", bindings.Negative,
		"save_path", bindings.SavePath,
		"output", bindings.Output,
		"latent_image", bindings.LatentImage,
	)

	return &Generator{
		cfg:      cfg,
		template: template,
		client:   client,
		bindings: bindings,
		logger:   logger,
	}, nil
}

func resolveBindings(t *workflow.Template, cfg *config.Config) (Bindings, error) {
	var b Bindings
	var err error

	b.Positive, err = t.ResolveRole(workflow.RolePositivePrompt, cfg.PosPromptNodeID, positiveTitleHint, promptTypeHint)
	if err != nil {
		return b, fmt.Errorf("resolving positive prompt node: %w", err)
	}

	b.Output, err = t.ResolveRole(workflow.RoleOutput, cfg.OutputNodeID, outputTitleHint, outputTypeHint)
	if err != nil {
		return b, fmt.Errorf("resolving output node: %w", err)
	}

	// Optional roles: explicit identifiers must still exist, but failed
	// discovery just leaves the role unbound.
	b.Negative = resolveOptional(t, workflow.RoleNegativePrompt, cfg.NegPromptNodeID, negativeTitleHint, promptTypeHint)
	if cfg.NegPromptNodeID != "" && b.Negative == "" {
		return b, fmt.Errorf("resolving negative prompt node: %w", workflow.ErrNodeNotFound)
	}
	b.SavePath = resolveOptional(t, workflow.RoleSavePath, cfg.SavePathNodeID, savePathTitleHint, savePathTypeHint)
	b.LatentImage = resolveOptional(t, workflow.RoleLatentImage, cfg.LatentImageNodeID, latentTitleHint, latentTypeHint)

	return b, nil
}

func resolveOptional(t *workflow.Template, role workflow.Role, explicitID, titleHint, typeHint string) string {
	id, err := t.ResolveRole(role, explicitID, titleHint, typeHint)
	if err != nil {
		return ""
	}
	return id
}

// Bindings returns the resolved role bindings.
func (g *Generator) Bindings() Bindings { return g.bindings }

// Tool wraps the generator as a registrable tool.
func (g *Generator) Tool() *tool.Tool[Input, Output] {
	return tool.NewTool("generate_image", g.Generate,
		tool.WithDescription("Generate an image from a text prompt using the configured ComfyUI workflow. Returns the local file path of the saved image, or a direct URL when the server runs in url output mode."),
	)
}

// Generate runs one job end to end: inject prompts and overrides, submit,
// poll to a terminal state, and fetch or locate the artifact. Exactly one of
// an artifact reference or an error is produced; a failed or timed-out job
// never returns a partial result.
func (g *Generator) Generate(ctx context.Context, in Input) (Output, error) {
	if in.PositivePrompt == "" {
		return Output{}, errors.New("positive_prompt must not be empty")
	}

	job := g.template.Job()

	// Without a caller override the template's own save-path value wins: the
	// bound node's text input may be a literal or a link into a Text String
	// node (common in Image Save setups).
	override := in.SavePath
	if override == "" && g.bindings.SavePath != "" {
		if n, ok := job.Node(g.bindings.SavePath); ok {
			override = job.ResolveInputValue(n.Inputs["text"])
		}
	}
	saveDir := g.cfg.SaveDir(override)

	if err := job.InjectPrompt(g.bindings.Positive, in.PositivePrompt); err != nil {
		return Output{}, fmt.Errorf("injecting positive prompt: %w", err)
	}

	if g.bindings.Negative != "" && in.NegativePrompt != "" {
		if err := job.InjectPrompt(g.bindings.Negative, in.NegativePrompt); err != nil {
			// The negative role is optional; a template without the input is
			// worth a warning, not a failed generation.
			g.logger.Warn("skipping negative prompt", "node", g.bindings.Negative, "error", err)
		}
	}

	if g.bindings.SavePath != "" {
		if err := job.SetInput(g.bindings.SavePath, "text", saveDir); err != nil {
			g.logger.Warn("skipping save path injection", "node", g.bindings.SavePath, "error", err)
		}
	}

	if g.bindings.LatentImage != "" {
		if in.Width > 0 {
			if err := job.SetInput(g.bindings.LatentImage, "width", in.Width); err != nil {
				g.logger.Warn("skipping width override", "node", g.bindings.LatentImage, "error", err)
			}
		}
		if in.Height > 0 {
			if err := job.SetInput(g.bindings.LatentImage, "height", in.Height); err != nil {
				g.logger.Warn("skipping height override", "node", g.bindings.LatentImage, "error", err)
			}
		}
	}

	handle, err := g.client.Submit(ctx, job)
	if err != nil {
		return Output{}, err
	}

	result, err := g.client.PollForCompletion(ctx, handle, g.bindings.Output)
	if err != nil {
		return Output{}, err
	}

	switch result.Status {
	case comfy.StatusCompleted:
		// fall through to fetch
	case comfy.StatusFailed:
		return Output{}, fmt.Errorf("backend reported failure for job %s: %s", handle, result.FailureReason)
	case comfy.StatusTimedOut:
		return Output{}, fmt.Errorf("job %s did not finish within the polling budget (the remote job may still be running)", handle)
	default:
		return Output{}, fmt.Errorf("job %s ended in unexpected status %s", handle, result.Status)
	}

	saved, err := g.client.FetchAndSave(ctx, *result.Output, comfy.OutputMode(g.cfg.OutputMode), saveDir)
	if err != nil {
		return Output{}, err
	}

	return Output{Path: saved.Path, URL: saved.URL}, nil
}
