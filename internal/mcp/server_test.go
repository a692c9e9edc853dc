package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/leofalp/comfymcp/providers/tool"
)

type greetInput struct {
	Name string `json:"name" jsonschema:"description=Who to greet,required"`
}

type greetOutput struct {
	Greeting string `json:"greeting"`
}

func testCatalog() *tool.Catalog {
	greet := tool.NewTool("greet", func(_ context.Context, in greetInput) (greetOutput, error) {
		if in.Name == "" {
			return greetOutput{}, errors.New("name is required")
		}
		return greetOutput{Greeting: "hello " + in.Name}, nil
	}, tool.WithDescription("Greets someone by name"))

	return tool.NewCatalog(greet)
}

// serve runs one or more newline-framed requests through the server and
// returns the decoded responses in order.
func serve(t *testing.T, lines ...string) []map[string]any {
	t.Helper()

	server := NewServer("test-server", "0.1.0", testCatalog(), nil)

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	if err := server.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []map[string]any
	decoder := json.NewDecoder(&out)
	for decoder.More() {
		var resp map[string]any
		if err := decoder.Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func result(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	if errObj, ok := resp["error"]; ok {
		t.Fatalf("unexpected error response: %v", errObj)
	}
	res, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", resp["result"])
	}
	return res
}

func TestServe_Initialize(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}

	res := result(t, responses[0])
	if res["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", res["protocolVersion"])
	}
	info, _ := res["serverInfo"].(map[string]any)
	if info["name"] != "test-server" || info["version"] != "0.1.0" {
		t.Errorf("serverInfo = %v", info)
	}
	caps, _ := res["capabilities"].(map[string]any)
	if _, ok := caps["tools"]; !ok {
		t.Errorf("capabilities = %v, want tools advertised", caps)
	}
}

func TestServe_ToolsList(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	res := result(t, responses[0])
	tools, ok := res["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("tools = %v, want one entry", res["tools"])
	}
	entry := tools[0].(map[string]any)
	if entry["name"] != "greet" {
		t.Errorf("name = %v", entry["name"])
	}
	if entry["description"] != "Greets someone by name" {
		t.Errorf("description = %v", entry["description"])
	}
	schema, _ := entry["inputSchema"].(map[string]any)
	if schema["type"] != "object" {
		t.Errorf("inputSchema = %v", schema)
	}
}

func TestServe_ToolsCall(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"greet","arguments":{"name":"world"}}}`)

	res := result(t, responses[0])
	if isError, _ := res["isError"].(bool); isError {
		t.Fatalf("isError set: %v", res)
	}
	content, _ := res["content"].([]any)
	if len(content) != 1 {
		t.Fatalf("content = %v", res["content"])
	}
	item := content[0].(map[string]any)
	if item["type"] != "text" || item["text"] != `{"greeting":"hello world"}` {
		t.Errorf("content item = %v", item)
	}
}

func TestServe_ToolsCallFailureBecomesIsError(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"greet","arguments":{}}}`)

	res := result(t, responses[0])
	if isError, _ := res["isError"].(bool); !isError {
		t.Fatalf("isError not set: %v", res)
	}
	content := res["content"].([]any)
	item := content[0].(map[string]any)
	if item["text"] != "name is required" {
		t.Errorf("error text = %v", item["text"])
	}
}

func TestServe_ToolsCallUnknownTool(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"missing"}}`)

	errObj, ok := responses[0]["error"].(map[string]any)
	if !ok {
		t.Fatalf("want error response, got %v", responses[0])
	}
	if code := errObj["code"].(float64); code != codeInvalidParams {
		t.Errorf("code = %v, want %d", code, codeInvalidParams)
	}
}

func TestServe_UnknownMethod(t *testing.T) {
	responses := serve(t, `{"jsonrpc":"2.0","id":6,"method":"resources/list"}`)

	errObj, ok := responses[0]["error"].(map[string]any)
	if !ok {
		t.Fatalf("want error response, got %v", responses[0])
	}
	if code := errObj["code"].(float64); code != codeMethodNotFound {
		t.Errorf("code = %v, want %d", code, codeMethodNotFound)
	}
}

func TestServe_NotificationProducesNoResponse(t *testing.T) {
	responses := serve(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`,
	)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want only the ping reply", len(responses))
	}
	if string(mustJSON(t, responses[0]["id"])) != "7" {
		t.Errorf("id = %v, want 7", responses[0]["id"])
	}
}

func TestServe_ParseError(t *testing.T) {
	responses := serve(t, `{not json`)

	errObj, ok := responses[0]["error"].(map[string]any)
	if !ok {
		t.Fatalf("want error response, got %v", responses[0])
	}
	if code := errObj["code"].(float64); code != codeParseError {
		t.Errorf("code = %v, want %d", code, codeParseError)
	}
	if responses[0]["id"] != nil {
		t.Errorf("id = %v, want null", responses[0]["id"])
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
