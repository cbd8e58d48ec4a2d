package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/yantea/picocode/llm"
)

// ToolArgumentError reports a tool call whose arguments failed validation:
// not an object, missing a required parameter, carrying an unexpected one, or
// holding the wrong type. It is caught at the execution boundary before the
// handler runs.
type ToolArgumentError struct {
	Tool   string
	Arg    string
	Reason string
}

func (e *ToolArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Arg, e.Reason)
}

// ToolExecutionError wraps a handler failure. Error returns the underlying
// failure text unchanged; the tool name is carried separately for hosts that
// want it.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Args holds one call's validated arguments.
type Args map[string]interface{}

// String returns the named argument as a string, or def when absent.
func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// Int returns the named argument as an int, or def when absent.
func (a Args) Int(key string, def int) int {
	if v, ok := a[key].(float64); ok {
		return int(v)
	}
	return def
}

// Bool returns the named argument as a bool, or def when absent.
func (a Args) Bool(key string, def bool) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return def
}

// Handler executes one tool call. Arguments have already passed validation
// against the tool's declared parameters. A returned error is converted to an
// error-prefixed result; it never aborts the round.
type Handler func(ctx context.Context, args Args, env ExecutionEnvironment) (string, error)

// Tool pairs a tool's declaration with its handler.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// Definition renders the tool as the schema entry sent to the model.
func (t *Tool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  Schema(t.Params),
	}
}

// ParseArguments validates raw call arguments against the tool's declared
// parameters and returns them as a map. Validation covers presence and type
// only.
func (t *Tool) ParseArguments(raw json.RawMessage) (Args, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &ToolArgumentError{Tool: t.Name, Reason: "arguments are not a JSON object"}
	}
	declared := make(map[string]Param, len(t.Params))
	for _, p := range t.Params {
		declared[p.Name] = p
		v, present := args[p.Name]
		if !present {
			if p.Optional() {
				continue
			}
			return nil, &ToolArgumentError{Tool: t.Name, Arg: p.Name, Reason: "is required"}
		}
		switch p.BaseType() {
		case "string":
			if _, ok := v.(string); !ok {
				return nil, &ToolArgumentError{Tool: t.Name, Arg: p.Name, Reason: "must be a string"}
			}
		case "number":
			f, ok := v.(float64)
			if !ok || f != math.Trunc(f) {
				return nil, &ToolArgumentError{Tool: t.Name, Arg: p.Name, Reason: "must be an integer"}
			}
		case "boolean":
			if _, ok := v.(bool); !ok {
				return nil, &ToolArgumentError{Tool: t.Name, Arg: p.Name, Reason: "must be a boolean"}
			}
		}
	}
	for key := range args {
		if _, ok := declared[key]; !ok {
			return nil, &ToolArgumentError{Tool: t.Name, Arg: key, Reason: "is not a declared argument"}
		}
	}
	return args, nil
}

// Registry holds the session's tools in registration order. Order is part of
// the contract: it fixes the schema the model sees.
type Registry struct {
	mu    sync.RWMutex
	names []string
	tools map[string]*Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool. Re-registering a name replaces the tool in place,
// keeping its original position.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; !ok {
		r.names = append(r.names, t.Name)
	}
	r.tools[t.Name] = &t
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns every tool's schema entry in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs one tool call and always produces a result: an unknown name,
// bad arguments, or a failed handler all become error-prefixed result text
// answering the call's id.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall, env ExecutionEnvironment) llm.ToolResult {
	tool := r.Get(call.Name)
	if tool == nil {
		return llm.ToolResult{
			ToolCallID: call.ID,
			Content:    "error: unknown tool: " + call.Name,
			IsError:    true,
		}
	}
	args, err := tool.ParseArguments(call.Arguments)
	if err != nil {
		return llm.ToolResult{
			ToolCallID: call.ID,
			Content:    "error: " + err.Error(),
			IsError:    true,
		}
	}
	out, err := tool.Handler(ctx, args, env)
	if err != nil {
		var argErr *ToolArgumentError
		if !errors.As(err, &argErr) {
			err = &ToolExecutionError{Tool: call.Name, Err: err}
		}
		return llm.ToolResult{
			ToolCallID: call.ID,
			Content:    "error: " + err.Error(),
			IsError:    true,
		}
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: out}
}
