package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeTemplate writes content to a temp file and returns its path.
func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing template fixture: %v", err)
	}
	return path
}

const executionFixture = `{
	"6": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat", "clip": ["4", 0]}, "_meta": {"title": "Positive Prompt"}},
	"7": {"class_type": "CLIPTextEncode", "inputs": {"text": "blurry", "clip": ["4", 0]}, "_meta": {"title": "Negative Prompt"}},
	"4": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "model.safetensors"}},
	"9": {"class_type": "SaveImage", "inputs": {"filename_prefix": "out", "images": ["6", 0]}, "_meta": {"title": "Output"}},
	"10": {"class_type": "KSampler", "inputs": {"seed": 5}}
}`

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Load() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"top-level array", `[1, 2, 3]`},
		{"node without class_type", `{"6": {"inputs": {}}}`},
		{"node is not an object", `{"6": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemplate(t, tt.content))
			if !errors.Is(err, ErrTemplateMalformed) {
				t.Fatalf("Load() error = %v, want ErrTemplateMalformed", err)
			}
		})
	}
}

func TestLoad_RepairsAlmostValidJSON(t *testing.T) {
	// Hand-edited exports often carry trailing commas; one repair pass
	// should recover them instead of failing outright.
	path := writeTemplate(t, `{"6": {"class_type": "CLIPTextEncode", "inputs": {"text": "x"},},}`)

	tpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v, want repaired template", err)
	}
	if tpl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tpl.Len())
	}
}

func TestLoad_ExecutionRepresentation(t *testing.T) {
	tpl, err := Load(writeTemplate(t, executionFixture))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if tpl.Representation() != RepresentationExecution {
		t.Errorf("Representation() = %v, want execution", tpl.Representation())
	}
	if tpl.Len() != 5 {
		t.Errorf("Len() = %d, want 5", tpl.Len())
	}

	// Iteration order is numeric so discovery tie-breaks are stable.
	wantOrder := []string{"4", "6", "7", "9", "10"}
	if got := tpl.NodeIDs(); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("NodeIDs() = %v, want %v", got, wantOrder)
	}

	n, ok := tpl.Node("6")
	if !ok {
		t.Fatal("Node(6) not found")
	}
	if n.ClassType != "CLIPTextEncode" {
		t.Errorf("ClassType = %q, want CLIPTextEncode", n.ClassType)
	}
	if n.Title != "Positive Prompt" {
		t.Errorf("Title = %q, want Positive Prompt (from _meta)", n.Title)
	}
	if n.Inputs["text"] != "a cat" {
		t.Errorf("Inputs[text] = %v, want a cat", n.Inputs["text"])
	}
}
