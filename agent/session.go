package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/yantea/picocode/extract"
	"github.com/yantea/picocode/llm"
)

// Phase is where in the loop a session currently is.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseAwaitResponse Phase = "await_response"
	PhaseExecuteTools  Phase = "execute_tools"
)

const defaultMaxTokens = 8192

// SessionConfig holds the knobs a session is created with.
type SessionConfig struct {
	// Model is sent with every request when non-empty. Single-model servers
	// work without one.
	Model string
	// MaxTokens caps each reply. Zero means the default.
	MaxTokens int
	// Parser names the textual tool-call grammar to fall back on when a
	// reply carries no structured calls. Empty means structured calls only.
	Parser string
	// SystemPrompt overrides the built-in prompt when non-empty.
	SystemPrompt string
	// Sink observes the loop. May be nil.
	Sink Sink
	// Logger receives debug logging. Nil discards.
	Logger *slog.Logger
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxTokens: defaultMaxTokens,
	}
}

// Session drives the agentic loop for one conversation: send the history,
// read the reply, execute its tool calls, repeat until a reply asks for
// nothing. A Session is driven from one goroutine at a time; the accessors
// are safe to call from others.
type Session struct {
	id       string
	client   *llm.Client
	registry *Registry
	parsers  *extract.Registry
	env      ExecutionEnvironment

	model        string
	maxTokens    int
	parserName   string
	systemPrompt string
	sink         Sink
	logger       *slog.Logger

	mu      sync.Mutex
	history []llm.Message
	phase   Phase
}

// NewSession creates a session over the given client, tools, parsers, and
// execution environment. A nil config takes every default.
func NewSession(client *llm.Client, registry *Registry, parsers *extract.Registry, env ExecutionEnvironment, config *SessionConfig) *Session {
	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = "Concise coding assistant. cwd: " + env.WorkingDirectory()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		id:           uuid.New().String(),
		client:       client,
		registry:     registry,
		parsers:      parsers,
		env:          env,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		parserName:   cfg.Parser,
		systemPrompt: systemPrompt,
		sink:         cfg.Sink,
		logger:       logger,
		phase:        PhaseIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the loop's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// History returns a copy of the conversation history.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]llm.Message, len(s.history))
	copy(h, s.history)
	return h
}

// Clear discards the conversation history. The system prompt is unaffected;
// it was never stored there.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Run processes one user input: the input joins the history, then the
// session alternates completion calls and tool execution until a reply
// arrives without tool calls. That reply's text is returned.
//
// A transport or endpoint error ends the turn and is returned as-is. History
// keeps everything appended up to that point, and the next Run continues
// from it. There are no retries and no bound on the number of rounds.
func (s *Session) Run(ctx context.Context, input string) (string, error) {
	s.append(llm.UserMessage(input))
	s.logger.Debug("turn start", "session", s.id, "input_chars", len(input))

	for {
		s.setPhase(PhaseAwaitResponse)
		resp, err := s.client.Complete(ctx, s.buildRequest())
		if err != nil {
			s.setPhase(PhaseIdle)
			return "", err
		}

		reply := s.parsers.Extract(resp.Message, s.parserName)
		s.append(llm.AssistantMessage(reply.Content, reply.ToolCalls))
		s.emit(Event{Kind: EventAssistantText, Text: reply.Content})
		s.logger.Debug("assistant reply",
			"session", s.id,
			"chars", len(reply.Content),
			"tool_calls", len(reply.ToolCalls))

		if len(reply.ToolCalls) == 0 {
			s.setPhase(PhaseIdle)
			s.logger.Debug("turn end", "session", s.id)
			return reply.Content, nil
		}

		s.setPhase(PhaseExecuteTools)
		for _, call := range reply.ToolCalls {
			s.emit(Event{Kind: EventToolCallStart, Call: call})
			callCtx := WithToolOutput(ctx, func(line string) {
				s.emit(Event{Kind: EventToolOutput, Call: call, Text: line})
			})
			result := s.registry.Execute(callCtx, call, s.env)
			s.append(result.Message())
			s.emit(Event{Kind: EventToolCallEnd, Call: call, Result: result})
			s.logger.Debug("tool result",
				"session", s.id,
				"tool", call.Name,
				"call_id", call.ID,
				"chars", len(result.Content),
				"is_error", result.IsError)
		}
	}
}

// buildRequest assembles the next completion request. The system prompt is
// prepended fresh each call and never stored in history.
func (s *Session) buildRequest() llm.Request {
	history := s.History()
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemMessage(s.systemPrompt))
	messages = append(messages, history...)
	return llm.Request{
		Model:     s.model,
		Messages:  messages,
		Tools:     s.registry.Definitions(),
		MaxTokens: s.maxTokens,
	}
}

func (s *Session) append(msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) emit(e Event) {
	if s.sink != nil {
		s.sink(e)
	}
}
