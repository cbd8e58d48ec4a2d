package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter bridges backends that have no OpenAI-compatible endpoint by
// delegating generation to the gollm library. Replies come back as plain text
// with no structured tool calls, so tool use over this adapter depends on a
// textual tool-call grammar the extraction layer understands.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
}

// NewGollmAdapter creates an adapter for the named gollm provider
// ("anthropic", "ollama", ...). The model is required; gollm has no notion of
// a server-side default.
func NewGollmAdapter(provider, apiKey, model string) (*GollmAdapter, error) {
	if model == "" {
		return nil, fmt.Errorf("gollm provider %q requires a model", provider)
	}
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}
	instance, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm %s backend: %w", provider, err)
	}
	return &GollmAdapter{provider: provider, llm: instance}, nil
}

// Name implements ProviderAdapter.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete implements ProviderAdapter. The conversation is flattened into a
// single prompt because gollm's Generate API is not conversational.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens > 0 {
		a.llm.SetOption("max_tokens", req.MaxTokens)
	}
	text, err := a.llm.Generate(ctx, a.buildPrompt(req))
	if err != nil {
		return nil, &TransportError{Message: a.provider + " generate", Cause: err}
	}
	return &Response{
		ID:      "resp_" + uuid.New().String()[:8],
		Model:   req.Model,
		Message: Message{Role: RoleAssistant, Content: text},
	}, nil
}

// buildPrompt flattens history into one gollm prompt. System text becomes the
// system prompt; assistant turns and tool results are role-prefixed so the
// multi-turn shape survives the flattening.
func (a *GollmAdapter) buildPrompt(req Request) *gollm.Prompt {
	var system []string
	var parts []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
		case RoleTool:
			parts = append(parts, "[Tool Result]: "+msg.Content)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		text = "Hello"
	}

	var opts []gollm.PromptOption
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.Join(system, "\n"), gollm.CacheTypeEphemeral))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, def := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  def.Parameters,
				},
			})
		}
		opts = append(opts, gollm.WithTools(tools))
	}
	return gollm.NewPrompt(text, opts...)
}
