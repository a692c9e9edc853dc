package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
	"github.com/leofalp/comfymcp/internal/jsonschema"
)

// Tool binds a name and description to a strongly-typed function. Schemas
// for the input type I and output type O are derived via reflection when the
// tool is constructed.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Output      *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool is the type-erased interface all tools satisfy. It is what the
// catalog stores and the MCP server dispatches on.
type GenericTool interface {
	// Info returns the metadata used to advertise this tool to clients.
	Info() Info

	// Call invokes the tool with JSON-encoded arguments and returns the
	// JSON-encoded result.
	Call(ctx context.Context, argumentsJSON string) (string, error)
}

// Info is the advertised metadata of a tool.
type Info struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

type options struct {
	description string
}

// WithDescription sets the human-readable description surfaced to clients so
// the calling model can decide when to invoke the tool.
func WithDescription(description string) func(*options) {
	return func(o *options) { o.description = description }
}

// NewTool constructs a [Tool] with the given name and handler function.
func NewTool[I, O any](name string, function func(ctx context.Context, input I) (O, error), opts ...func(*options)) *Tool[I, O] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: o.description,
		Parameters:  jsonschema.For[I](),
		Output:      jsonschema.For[O](),
		Function:    function,
	}
}

// Info implements [GenericTool].
func (t *Tool[I, O]) Info() Info {
	return Info{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call decodes argumentsJSON into the input type, executes the function, and
// returns the JSON-encoded output. Models occasionally emit almost-JSON
// arguments (single quotes, unquoted keys), so a failed decode gets one
// jsonrepair pass before the call is rejected.
func (t *Tool[I, O]) Call(ctx context.Context, argumentsJSON string) (string, error) {
	var input I
	if err := json.Unmarshal([]byte(argumentsJSON), &input); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(argumentsJSON)
		if repairErr != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", t.Name, err)
		}
		if err := json.Unmarshal([]byte(repaired), &input); err != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", t.Name, err)
		}
	}

	output, err := t.Function(ctx, input)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("tool %s: encoding output: %w", t.Name, err)
	}
	return string(encoded), nil
}
