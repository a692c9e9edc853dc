package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"description=Text to echo back,required"`
	Repeat  int    `json:"repeat,omitempty" jsonschema:"description=How many times to repeat"`
}

type echoOutput struct {
	Echoed string `json:"echoed"`
}

func newEchoTool() *Tool[echoInput, echoOutput] {
	return NewTool("Echo", func(ctx context.Context, in echoInput) (echoOutput, error) {
		repeat := in.Repeat
		if repeat < 1 {
			repeat = 1
		}
		return echoOutput{Echoed: strings.Repeat(in.Message, repeat)}, nil
	}, WithDescription("Echoes the message back."))
}

func TestNewTool(t *testing.T) {
	echo := newEchoTool()

	if echo.Name != "Echo" {
		t.Errorf("Name = %q, want Echo", echo.Name)
	}
	if echo.Description == "" {
		t.Error("Description is empty")
	}
	if echo.Parameters == nil || echo.Parameters.Type != "object" {
		t.Fatalf("Parameters = %+v, want object schema", echo.Parameters)
	}
	if _, ok := echo.Parameters.Properties["message"]; !ok {
		t.Error("Parameters missing message property")
	}
	if len(echo.Parameters.Required) != 1 || echo.Parameters.Required[0] != "message" {
		t.Errorf("Required = %v, want [message]", echo.Parameters.Required)
	}
}

func TestCall(t *testing.T) {
	echo := newEchoTool()

	out, err := echo.Call(context.Background(), `{"message": "hi", "repeat": 2}`)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out != `{"echoed":"hihi"}` {
		t.Errorf("Call() = %q", out)
	}
}

func TestCall_RepairsAlmostJSONArguments(t *testing.T) {
	echo := newEchoTool()

	// Models sometimes emit single quotes and unquoted keys.
	out, err := echo.Call(context.Background(), `{message: 'hi'}`)
	if err != nil {
		t.Fatalf("Call() error = %v, want repaired arguments to succeed", err)
	}
	if !strings.Contains(out, "hi") {
		t.Errorf("Call() = %q, want echoed message", out)
	}
}

func TestCall_InvalidArguments(t *testing.T) {
	echo := newEchoTool()

	if _, err := echo.Call(context.Background(), `[1, 2, 3]`); err == nil {
		t.Fatal("Call() with non-object arguments should fail")
	}
}

func TestCall_FunctionError(t *testing.T) {
	boom := errors.New("boom")
	failing := NewTool("Fail", func(ctx context.Context, in echoInput) (echoOutput, error) {
		return echoOutput{}, boom
	})

	_, err := failing.Call(context.Background(), `{"message": "x"}`)
	if !errors.Is(err, boom) {
		t.Fatalf("Call() error = %v, want the function error", err)
	}
}
