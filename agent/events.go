package agent

import (
	"context"

	"github.com/yantea/picocode/llm"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	// EventAssistantText carries one reply's display text, already cleaned of
	// tool-call markup. Text may be empty when the reply was calls only.
	EventAssistantText EventKind = "assistant_text"
	// EventToolCallStart fires before a tool call executes.
	EventToolCallStart EventKind = "tool_call_start"
	// EventToolOutput carries one live output line from a running tool.
	EventToolOutput EventKind = "tool_output"
	// EventToolCallEnd fires after a tool call produced its result.
	EventToolCallEnd EventKind = "tool_call_end"
)

// Event is one observable moment of a session turn. Which fields are set
// depends on Kind: Text for assistant text and tool output, Call from
// tool_call_start onward, Result only on tool_call_end.
type Event struct {
	Kind   EventKind
	Text   string
	Call   llm.ToolCall
	Result llm.ToolResult
}

// Sink receives events synchronously on the loop's goroutine. A slow sink
// slows the loop; that is the deal, there is no buffering to fall behind.
type Sink func(Event)

type toolOutputKey struct{}

// WithToolOutput returns a context that delivers live tool output lines to
// fn. The shell tool streams through it; other tools ignore it.
func WithToolOutput(ctx context.Context, fn func(line string)) context.Context {
	return context.WithValue(ctx, toolOutputKey{}, fn)
}

// ToolOutput extracts the live-output callback from ctx, or nil when none was
// attached.
func ToolOutput(ctx context.Context) func(line string) {
	fn, _ := ctx.Value(toolOutputKey{}).(func(line string))
	return fn
}
