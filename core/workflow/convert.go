package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// editorDocument is the wire shape of a graph-editor export. Links is a table
// of rows [linkID, sourceNodeID, sourceSlot, targetNodeID, targetSlot, type].
type editorDocument struct {
	Nodes []editorNode `json:"nodes"`
	Links [][]any      `json:"links"`
}

type editorNode struct {
	ID            json.Number   `json:"id"`
	Type          string        `json:"type"`
	Title         string        `json:"title"`
	Inputs        []editorInput `json:"inputs"`
	WidgetsValues []any         `json:"widgets_values"`
}

// editorInput is one declared input of an editor node. Widget-bearing inputs
// take their value positionally from widgets_values; linked inputs reference
// a row in the document link table.
type editorInput struct {
	Name   string          `json:"name"`
	Link   *int64          `json:"link"`
	Widget json.RawMessage `json:"widget"`
}

// convertEditorDocument converts an editor export to execution
// representation: each node becomes {class_type, inputs} where widget values
// are mapped positionally onto widget-bearing inputs and every linked input
// is replaced by a [sourceNodeID, sourceSlot] reference resolved through the
// link table.
//
// The conversion preserves node count and guarantees that every resolved
// link points at a node present in the output mapping; a dangling link makes
// the whole document invalid rather than producing a graph the backend would
// reject later.
func convertEditorDocument(raw []byte) (*Template, error) {
	var doc editorDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("editor document has no nodes")
	}

	linksBySource := make(map[int64][2]any, len(doc.Links))
	for _, row := range doc.Links {
		if len(row) < 3 {
			return nil, fmt.Errorf("link row has %d elements, want at least 3", len(row))
		}
		linkID, err := linkNumber(row[0])
		if err != nil {
			return nil, fmt.Errorf("link id: %w", err)
		}
		sourceNode, err := linkNumber(row[1])
		if err != nil {
			return nil, fmt.Errorf("link %d source node: %w", linkID, err)
		}
		sourceSlot, err := linkNumber(row[2])
		if err != nil {
			return nil, fmt.Errorf("link %d source slot: %w", linkID, err)
		}
		linksBySource[linkID] = [2]any{strconv.FormatInt(sourceNode, 10), int(sourceSlot)}
	}

	nodes := make(map[string]Node, len(doc.Nodes))
	order := make([]string, 0, len(doc.Nodes))
	linkCount := 0

	for _, en := range doc.Nodes {
		id := en.ID.String()
		if _, exists := nodes[id]; exists {
			return nil, fmt.Errorf("duplicate node id %q", id)
		}

		inputs := map[string]any{}
		widgetIdx := 0
		for _, in := range en.Inputs {
			switch {
			case len(in.Widget) > 0:
				if widgetIdx < len(en.WidgetsValues) {
					inputs[in.Name] = en.WidgetsValues[widgetIdx]
					widgetIdx++
				}
			case in.Link != nil:
				ref, ok := linksBySource[*in.Link]
				if !ok {
					return nil, fmt.Errorf("node %s input %q references unknown link %d", id, in.Name, *in.Link)
				}
				inputs[in.Name] = []any{ref[0], ref[1]}
				linkCount++
			}
		}

		nodes[id] = Node{ClassType: en.Type, Title: en.Title, Inputs: inputs}
		order = append(order, id)
	}

	// Round-trip invariant: every resolved link must reference a node that
	// made it into the output mapping.
	for id, n := range nodes {
		for name, v := range n.Inputs {
			src, _, ok := LinkRef(v)
			if !ok {
				continue
			}
			if _, exists := nodes[src]; !exists {
				return nil, fmt.Errorf("node %s input %q links to missing node %s", id, name, src)
			}
		}
	}

	return &Template{
		representation: RepresentationEditor,
		nodes:          nodes,
		order:          order,
		linkCount:      linkCount,
	}, nil
}

// linkNumber coerces a link-table cell to an integer. Rows decode as []any,
// so numeric cells arrive as float64 or json.Number depending on the decoder.
func linkNumber(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected link cell type %T", v)
	}
}

// LinkRef reports whether an input value is a [sourceNodeID, sourceSlot]
// link reference, returning the parts when it is.
func LinkRef(v any) (sourceID string, slot int, ok bool) {
	ref, isSlice := v.([]any)
	if !isSlice || len(ref) != 2 {
		return "", 0, false
	}
	switch id := ref[0].(type) {
	case string:
		sourceID = id
	case float64:
		sourceID = strconv.FormatInt(int64(id), 10)
	default:
		return "", 0, false
	}
	switch s := ref[1].(type) {
	case int:
		slot = s
	case float64:
		slot = int(s)
	default:
		return "", 0, false
	}
	return sourceID, slot, true
}
