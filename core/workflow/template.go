package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// Representation identifies which on-disk form a template was loaded from.
type Representation string

const (
	// RepresentationEditor is the node-list-plus-link-list form produced by
	// the graph editor's "Save" export.
	RepresentationEditor Representation = "editor"

	// RepresentationExecution is the flat id-keyed mapping accepted directly
	// by the backend's submission endpoint ("Save (API Format)").
	RepresentationExecution Representation = "execution"
)

// Node is one unit of the graph in execution representation: a class type,
// an optional human-assigned title, and named inputs. An input value is
// either a literal (string, number, bool) or a two-element link reference
// [sourceNodeID, sourceOutputSlot].
type Node struct {
	ClassType string         `json:"class_type"`
	Title     string         `json:"-"`
	Inputs    map[string]any `json:"inputs"`
}

// Template is a parsed node-graph template, normalized to execution
// representation. Node identifiers are unique; iteration order is explicit
// and stable (file order for editor exports, numeric id order for execution
// files) so that discovery tie-breaks are deterministic.
type Template struct {
	representation Representation
	nodes          map[string]Node
	order          []string
	linkCount      int
}

// Representation reports which form the template file was in when loaded.
func (t *Template) Representation() Representation { return t.representation }

// Len returns the number of nodes in the template.
func (t *Template) Len() int { return len(t.nodes) }

// LinkCount returns the number of link references resolved during editor
// conversion. It is zero for templates loaded in execution representation.
func (t *Template) LinkCount() int { return t.linkCount }

// Node returns the node with the given identifier.
func (t *Template) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// NodeIDs returns the node identifiers in template iteration order.
func (t *Template) NodeIDs() []string {
	ids := make([]string, len(t.order))
	copy(ids, t.order)
	return ids
}

// execNode is the wire shape of a node in an execution-representation file.
// The editor stores the node title under the optional _meta object.
type execNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      struct {
		Title string `json:"title"`
	} `json:"_meta"`
}

// Load reads and parses the template file at path, detecting the
// representation by structural shape: a top-level "nodes" array marks an
// editor export, a flat id-keyed object marks an execution file.
//
// A missing file returns [ErrTemplateNotFound]. Invalid JSON is run through
// one jsonrepair pass before giving up with [ErrTemplateMalformed]; editors
// and hand edits produce trailing commas often enough to make the recovery
// attempt worthwhile.
func Load(path string) (*Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(raw))
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMalformed, path, err)
		}
		if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMalformed, path, err)
		}
		raw = []byte(repaired)
	}

	if nodesRaw, ok := doc["nodes"]; ok && looksLikeArray(nodesRaw) {
		tpl, err := convertEditorDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMalformed, path, err)
		}
		return tpl, nil
	}

	tpl, err := parseExecutionDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMalformed, path, err)
	}
	return tpl, nil
}

func looksLikeArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// parseExecutionDocument builds a Template from an id-keyed node mapping.
// JSON objects carry no order, so ids are sorted numerically (lexically for
// non-numeric ids) to keep iteration order stable across loads.
func parseExecutionDocument(doc map[string]json.RawMessage) (*Template, error) {
	nodes := make(map[string]Node, len(doc))
	order := make([]string, 0, len(doc))

	for id, rawNode := range doc {
		var en execNode
		if err := json.Unmarshal(rawNode, &en); err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		if en.ClassType == "" {
			return nil, fmt.Errorf("node %q: missing class_type", id)
		}
		if en.Inputs == nil {
			en.Inputs = map[string]any{}
		}
		nodes[id] = Node{ClassType: en.ClassType, Title: en.Meta.Title, Inputs: en.Inputs}
		order = append(order, id)
	}

	sort.Slice(order, func(i, j int) bool {
		ni, erri := strconv.Atoi(order[i])
		nj, errj := strconv.Atoi(order[j])
		switch {
		case erri == nil && errj == nil:
			return ni < nj
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return order[i] < order[j]
		}
	})

	return &Template{
		representation: RepresentationExecution,
		nodes:          nodes,
		order:          order,
	}, nil
}
