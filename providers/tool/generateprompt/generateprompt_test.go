package generateprompt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/comfymcp/internal/config"
)

// fakeOllama answers /api/generate with a single canned non-streaming chunk.
func fakeOllama(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding generate request: %v", err)
		}
		if req.Model != "gemma3" {
			t.Errorf("model = %q, want gemma3", req.Model)
		}
		if !strings.Contains(req.Prompt, "Topic: a red fox in the snow") {
			t.Errorf("prompt is missing the topic: %q", req.Prompt)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"model":    req.Model,
			"response": response,
			"done":     true,
		}); err != nil {
			t.Errorf("writing generate response: %v", err)
		}
	}))
}

func newExpander(t *testing.T, serverURL string) *Expander {
	t.Helper()
	e, err := New(&config.Config{OllamaAPIBase: serverURL, PromptLLM: "gemma3"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestExpand(t *testing.T) {
	server := fakeOllama(t, "  A photorealistic red fox in fresh snow, golden hour.\n")
	defer server.Close()

	out, err := newExpander(t, server.URL).Expand(context.Background(), Input{Topic: "a red fox in the snow"})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if out.Prompt != "A photorealistic red fox in fresh snow, golden hour." {
		t.Errorf("Prompt = %q, want trimmed model response", out.Prompt)
	}
}

func TestExpand_EmptyTopic(t *testing.T) {
	server := fakeOllama(t, "unused")
	defer server.Close()

	if _, err := newExpander(t, server.URL).Expand(context.Background(), Input{Topic: "   "}); err == nil {
		t.Fatal("want error for blank topic")
	}
}

func TestExpand_EmptyModelResponse(t *testing.T) {
	server := fakeOllama(t, "   ")
	defer server.Close()

	_, err := newExpander(t, server.URL).Expand(context.Background(), Input{Topic: "a red fox in the snow"})
	if err == nil {
		t.Fatal("want error for empty model response")
	}
}

func TestNew_IncompleteConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
	}{
		{"no settings", config.Config{}},
		{"base only", config.Config{OllamaAPIBase: "http://localhost:11434"}},
		{"model only", config.Config{PromptLLM: "gemma3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(&tc.cfg); err == nil {
				t.Fatal("want error for incomplete config")
			}
		})
	}
}

func TestTool_Metadata(t *testing.T) {
	server := fakeOllama(t, "unused")
	defer server.Close()

	info := newExpander(t, server.URL).Tool().Info()
	if info.Name != "generate_prompt" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Parameters == nil || info.Parameters.Properties["topic"] == nil {
		t.Errorf("Parameters = %+v, want topic property", info.Parameters)
	}
}
