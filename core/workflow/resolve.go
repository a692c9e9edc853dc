package workflow

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Role is a logical purpose bound to one specific node in a given template.
type Role string

const (
	RolePositivePrompt Role = "positive prompt"
	RoleNegativePrompt Role = "negative prompt"
	RoleSavePath       Role = "save path"
	RoleOutput         Role = "output"
	RoleLatentImage    Role = "latent image"
)

// promptInputName is the designated text input field on prompt nodes.
const promptInputName = "text"

// ResolveRole binds a role to a node identifier.
//
// When explicitID is non-empty no discovery is performed: the node must exist
// in the template or the call fails with [ErrNodeNotFound]. Otherwise a first
// pass looks for a node whose title equals titleHint and whose class type
// equals typeHint; when that finds nothing, a second pass matches on typeHint
// alone. A second pass with more than one candidate picks the first in
// template iteration order and logs a warning, since the choice is stable but
// arbitrary — callers should prefer explicit identifiers.
func (t *Template) ResolveRole(role Role, explicitID, titleHint, typeHint string) (string, error) {
	if explicitID != "" {
		if _, ok := t.nodes[explicitID]; !ok {
			return "", fmt.Errorf("%w: %s node %q", ErrNodeNotFound, role, explicitID)
		}
		return explicitID, nil
	}

	if titleHint != "" {
		for _, id := range t.order {
			n := t.nodes[id]
			if n.Title == titleHint && n.ClassType == typeHint {
				return id, nil
			}
		}
	}

	if typeHint != "" {
		var matches []string
		for _, id := range t.order {
			if t.nodes[id].ClassType == typeHint {
				matches = append(matches, id)
			}
		}
		if len(matches) > 0 {
			if len(matches) > 1 {
				slog.Warn("ambiguous node discovery, picking first match",
					"role", string(role),
					"class_type", typeHint,
					"candidates", matches,
					"picked", matches[0],
				)
			}
			return matches[0], nil
		}
	}

	return "", fmt.Errorf("%w: no node for role %q (title %q, type %q)", ErrNodeNotFound, role, titleHint, typeHint)
}

// Job is a template in execution representation whose inputs can be
// overwritten with caller-supplied values. Each invocation creates its own
// Job; it must not be mutated after submission.
type Job struct {
	nodes map[string]Node
	order []string
}

// Job returns a mutable execution-representation copy of the template.
// Node input maps are copied so injections never leak back into the shared
// template.
func (t *Template) Job() *Job {
	nodes := make(map[string]Node, len(t.nodes))
	for id, n := range t.nodes {
		inputs := make(map[string]any, len(n.Inputs))
		for k, v := range n.Inputs {
			inputs[k] = v
		}
		nodes[id] = Node{ClassType: n.ClassType, Title: n.Title, Inputs: inputs}
	}
	order := make([]string, len(t.order))
	copy(order, t.order)
	return &Job{nodes: nodes, order: order}
}

// Len returns the number of nodes in the job graph.
func (j *Job) Len() int { return len(j.nodes) }

// Node returns the job's copy of the node with the given identifier.
func (j *Job) Node(id string) (Node, bool) {
	n, ok := j.nodes[id]
	return n, ok
}

// InjectPrompt sets the designated text input of the node to the supplied
// prompt. The node must already declare a text input; a prompt role bound to
// a node without one is a template defect, reported as [ErrInputNotFound].
func (j *Job) InjectPrompt(nodeID, text string) error {
	n, ok := j.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	if _, ok := n.Inputs[promptInputName]; !ok {
		return fmt.Errorf("%w: node %q (%s) has no %q input", ErrInputNotFound, nodeID, n.ClassType, promptInputName)
	}
	n.Inputs[promptInputName] = text
	return nil
}

// SetInput sets a named input on the node, creating it when absent. Used for
// dimension and path overrides where the editor export may not have emitted
// the input explicitly.
func (j *Job) SetInput(nodeID, name string, value any) error {
	n, ok := j.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, nodeID)
	}
	n.Inputs[name] = value
	return nil
}

// MarshalJSON emits the id-keyed mapping consumed by the backend's
// submission endpoint.
func (j *Job) MarshalJSON() ([]byte, error) {
	type wireNode struct {
		ClassType string         `json:"class_type"`
		Inputs    map[string]any `json:"inputs"`
	}
	wire := make(map[string]wireNode, len(j.nodes))
	for id, n := range j.nodes {
		wire[id] = wireNode{ClassType: n.ClassType, Inputs: n.Inputs}
	}
	return json.Marshal(wire)
}

// ResolveInputValue follows an input value that may be a link reference into
// the source node's literal text. Text String nodes expose up to four outputs
// whose values live in the text/text_b/text_c/text_d inputs; other source
// node types have no retrievable literal, so the result is empty. Direct
// string values pass through unchanged.
func (j *Job) ResolveInputValue(value any) string {
	sourceID, slot, ok := LinkRef(value)
	if !ok {
		if s, isString := value.(string); isString {
			return s
		}
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	}

	source, exists := j.nodes[sourceID]
	if !exists || source.ClassType != "Text String" {
		return ""
	}
	textInputs := []string{"text", "text_b", "text_c", "text_d"}
	if slot < 0 || slot >= len(textInputs) {
		return ""
	}
	if s, isString := source.Inputs[textInputs[slot]].(string); isString {
		return s
	}
	return ""
}
