package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/yantea/picocode/llm"
)

func noopHandler(ctx context.Context, args Args, env ExecutionEnvironment) (string, error) {
	return "ok", nil
}

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "b", Handler: noopHandler})
	r.Register(Tool{Name: "a", Handler: noopHandler})
	r.Register(Tool{Name: "c", Handler: noopHandler})

	expected := []string{"b", "a", "c"}
	names := r.Names()
	if len(names) != len(expected) {
		t.Fatalf("expected names %v, got %v", expected, names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Fatalf("expected names %v, got %v", expected, names)
		}
	}

	// Re-registering keeps the original position.
	r.Register(Tool{Name: "a", Description: "replaced", Handler: noopHandler})
	names = r.Names()
	if names[1] != "a" {
		t.Errorf("expected a to keep position 1, got %v", names)
	}
	if r.Get("a").Description != "replaced" {
		t.Error("expected re-registration to replace the tool")
	}
	if r.Count() != 3 {
		t.Errorf("expected 3 tools, got %d", r.Count())
	}

	defs := r.Definitions()
	if len(defs) != 3 || defs[0].Name != "b" || defs[1].Name != "a" || defs[2].Name != "c" {
		t.Errorf("definitions out of order: %v", defs)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if r.Get("nope") != nil {
		t.Error("expected nil for unregistered tool")
	}
}

func TestToolDefinition(t *testing.T) {
	tool := Tool{
		Name:        "read",
		Description: "Read file with line numbers (file path, not directory)",
		Params:      []Param{{Name: "path", Type: "string"}, {Name: "offset", Type: "number?"}},
	}

	def := tool.Definition()
	if def.Name != "read" {
		t.Errorf("expected name read, got %q", def.Name)
	}
	if def.Description != tool.Description {
		t.Errorf("unexpected description: %q", def.Description)
	}
	if def.Parameters["type"] != "object" {
		t.Errorf("expected object parameters, got %v", def.Parameters["type"])
	}
}

func TestParseArguments(t *testing.T) {
	tool := &Tool{
		Name: "read",
		Params: []Param{
			{Name: "path", Type: "string"},
			{Name: "offset", Type: "number?"},
			{Name: "all", Type: "boolean?"},
		},
	}

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"all arguments", `{"path":"a.go","offset":3,"all":true}`, ""},
		{"optional omitted", `{"path":"a.go"}`, ""},
		{"integral float accepted", `{"path":"a.go","offset":3.0}`, ""},
		{"missing required", `{"offset":3}`, `read: argument "path" is required`},
		{"wrong string type", `{"path":7}`, `read: argument "path" must be a string`},
		{"null string", `{"path":null}`, `read: argument "path" must be a string`},
		{"fractional number", `{"path":"a.go","offset":3.5}`, `read: argument "offset" must be an integer`},
		{"string number", `{"path":"a.go","offset":"3"}`, `read: argument "offset" must be an integer`},
		{"wrong boolean type", `{"path":"a.go","all":"yes"}`, `read: argument "all" must be a boolean`},
		{"undeclared argument", `{"path":"a.go","recursive":true}`, `read: argument "recursive" is not a declared argument`},
		{"not an object", `[1,2]`, `read: arguments are not a JSON object`},
		{"empty raw", ``, `read: argument "path" is required`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.ParseArguments(json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			var argErr *ToolArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("expected ToolArgumentError, got %T", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestParseArgumentsEmptyRawAllOptional(t *testing.T) {
	tool := &Tool{Name: "x", Params: []Param{{Name: "n", Type: "number?"}}}
	args, err := tool.ParseArguments(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("expected empty args, got %v", args)
	}
}

func TestArgsAccessors(t *testing.T) {
	args := Args{"s": "text", "n": float64(7), "b": true}

	if got := args.String("s", "def"); got != "text" {
		t.Errorf("expected text, got %q", got)
	}
	if got := args.String("missing", "def"); got != "def" {
		t.Errorf("expected default, got %q", got)
	}
	if got := args.Int("n", 0); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := args.Int("missing", 42); got != 42 {
		t.Errorf("expected default 42, got %d", got)
	}
	if !args.Bool("b", false) {
		t.Error("expected true")
	}
	if args.Bool("missing", false) {
		t.Error("expected default false")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	res := r.Execute(context.Background(), llm.ToolCall{ID: "call_1", Name: "nope"}, nil)

	if res.ToolCallID != "call_1" {
		t.Errorf("expected result for call_1, got %q", res.ToolCallID)
	}
	if !res.IsError {
		t.Error("expected error result")
	}
	if res.Content != "error: unknown tool: nope" {
		t.Errorf("unexpected content: %q", res.Content)
	}
}

func TestExecuteArgumentError(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{
		Name:    "read",
		Params:  []Param{{Name: "path", Type: "string"}},
		Handler: noopHandler,
	})

	res := r.Execute(context.Background(), llm.ToolCall{ID: "call_2", Name: "read", Arguments: json.RawMessage(`{}`)}, nil)

	if !res.IsError {
		t.Error("expected error result")
	}
	if res.Content != `error: read: argument "path" is required` {
		t.Errorf("unexpected content: %q", res.Content)
	}
}

func TestExecuteHandlerError(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, args Args, env ExecutionEnvironment) (string, error) {
			return "", errors.New("disk on fire")
		},
	})

	res := r.Execute(context.Background(), llm.ToolCall{ID: "call_3", Name: "boom"}, nil)

	if !res.IsError {
		t.Error("expected error result")
	}
	// The result carries the failure text, not a wrapper's framing.
	if res.Content != "error: disk on fire" {
		t.Errorf("unexpected content: %q", res.Content)
	}
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{
		Name:   "echo",
		Params: []Param{{Name: "text", Type: "string"}},
		Handler: func(ctx context.Context, args Args, env ExecutionEnvironment) (string, error) {
			return args.String("text", ""), nil
		},
	})

	res := r.Execute(context.Background(), llm.ToolCall{
		ID:        "call_4",
		Name:      "echo",
		Arguments: json.RawMessage(`{"text":"hello"}`),
	}, nil)

	if res.IsError {
		t.Errorf("unexpected error result: %q", res.Content)
	}
	if res.Content != "hello" {
		t.Errorf("expected hello, got %q", res.Content)
	}
	if res.ToolCallID != "call_4" {
		t.Errorf("expected call_4, got %q", res.ToolCallID)
	}
}

func TestToolExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("open /x: no such file")
	err := &ToolExecutionError{Tool: "read", Err: cause}

	if err.Error() != cause.Error() {
		t.Errorf("expected passthrough message, got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected unwrap to reach the cause")
	}
}

func TestToolArgumentErrorMessages(t *testing.T) {
	withArg := &ToolArgumentError{Tool: "edit", Arg: "old", Reason: "is required"}
	if withArg.Error() != `edit: argument "old" is required` {
		t.Errorf("unexpected message: %q", withArg.Error())
	}

	withoutArg := &ToolArgumentError{Tool: "edit", Reason: "arguments are not a JSON object"}
	if withoutArg.Error() != "edit: arguments are not a JSON object" {
		t.Errorf("unexpected message: %q", withoutArg.Error())
	}
}
