package generateprompt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/leofalp/comfymcp/internal/config"
	"github.com/leofalp/comfymcp/providers/tool"
)

// promptTemplate instructs the model to answer with a single prompt and
// nothing else; the response is used verbatim as generation input.
const promptTemplate = `You are an AI Image Generation Prompt Assistant.
Your job is to review the topic provided by the user for an image generation task and create
an appropriate prompt from it. Respond with a single prompt. Don't ask for feedback about the prompt.

Topic: %s
Prompt: `

// Input is the topic to expand.
type Input struct {
	Topic string `json:"topic" jsonschema:"description=The topic to generate an image prompt for,required"`
}

// Output carries the generated prompt.
type Output struct {
	Prompt string `json:"prompt" jsonschema:"description=The generated image prompt"`
}

// Expander calls an Ollama model to expand topics into prompts.
type Expander struct {
	client *api.Client
	model  string
}

// New builds an expander from the Ollama settings in cfg. It fails when the
// configuration is incomplete or the API base is not a valid URL.
func New(cfg *config.Config) (*Expander, error) {
	if !cfg.HasOllamaConfig() {
		return nil, errors.New("OLLAMA_API_BASE and PROMPT_LLM must both be set")
	}

	base, err := url.Parse(cfg.OllamaAPIBase)
	if err != nil {
		return nil, fmt.Errorf("parsing OLLAMA_API_BASE: %w", err)
	}

	return &Expander{
		client: api.NewClient(base, http.DefaultClient),
		model:  cfg.PromptLLM,
	}, nil
}

// Tool wraps the expander as a registrable tool.
func (e *Expander) Tool() *tool.Tool[Input, Output] {
	return tool.NewTool("generate_prompt", e.Expand,
		tool.WithDescription("Generate an image generation prompt from a topic using the configured Ollama model."),
	)
}

// Expand renders the assistant template for the topic and runs a single
// non-streaming completion.
func (e *Expander) Expand(ctx context.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.Topic) == "" {
		return Output{}, errors.New("topic must not be empty")
	}

	stream := false
	var sb strings.Builder
	err := e.client.Generate(ctx, &api.GenerateRequest{
		Model:  e.model,
		Prompt: fmt.Sprintf(promptTemplate, in.Topic),
		Stream: &stream,
	}, func(res api.GenerateResponse) error {
		sb.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return Output{}, fmt.Errorf("ollama generate: %w", err)
	}

	prompt := strings.TrimSpace(sb.String())
	if prompt == "" {
		return Output{}, errors.New("model returned an empty prompt")
	}
	return Output{Prompt: prompt}, nil
}
