// Package extract recovers tool calls from assistant replies.
//
// Calls arrive in one of two forms: structured tool_calls on the reply
// message, or textual markup embedded in the reply content by models trained
// on a tool-call grammar. Structured calls always win; a reply that carries
// any is taken verbatim and its text is never scanned. Textual grammars are
// pluggable through Registry, keyed by name.
package extract

import "github.com/yantea/picocode/llm"

// Result is the outcome of extraction over one assistant reply.
type Result struct {
	// Content is the reply text with recognized tool-call markup removed.
	Content string
	// ToolCalls holds the recovered calls in the order they appeared.
	ToolCalls []llm.ToolCall
}

// Parser recovers tool calls written in one textual grammar.
type Parser interface {
	// Name returns the grammar's identifier, e.g. "glm".
	Name() string

	// Parse scans content for calls and returns the cleaned text alongside
	// them. Text with no recognizable markup passes through unchanged with
	// zero calls.
	Parse(content string) Result
}

// Registry maps grammar names to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry preloaded with the built-in parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(NewGLMParser())
	return r
}

// Register adds a parser under its own name, replacing any previous entry.
func (r *Registry) Register(p Parser) {
	r.parsers[p.Name()] = p
}

// Lookup returns the parser registered under name.
func (r *Registry) Lookup(name string) (Parser, bool) {
	p, ok := r.parsers[name]
	return p, ok
}

// Extract applies the extraction rules to one assistant reply. When the reply
// carries structured calls they are returned verbatim and the text is left
// alone. Otherwise the parser registered under parserName scans the text. An
// empty or unregistered parser name extracts nothing.
func (r *Registry) Extract(msg llm.Message, parserName string) Result {
	if len(msg.ToolCalls) > 0 {
		return Result{Content: msg.Content, ToolCalls: msg.ToolCalls}
	}
	if parserName != "" {
		if p, ok := r.Lookup(parserName); ok {
			return p.Parse(msg.Content)
		}
	}
	return Result{Content: msg.Content}
}
