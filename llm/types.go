package llm

import "encoding/json"

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation. Its JSON form is exactly the
// chat-completions wire shape, so accumulated history is sent back to the
// endpoint without translation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message carrying display text and the
// tool calls extracted from the same reply.
func AssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// ToolMessage creates a tool Message answering the call with the given id.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolCall is a model-issued request to invoke a named tool. Arguments always
// holds a JSON object mapping argument names to values. On the wire the
// arguments travel as a JSON-encoded string inside a function envelope;
// MarshalJSON and UnmarshalJSON convert between the two forms.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MarshalJSON renders the call in the wire form
// {"id":...,"type":"function","function":{"name":...,"arguments":"..."}}.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	args := tc.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return json.Marshal(wireToolCall{
		ID:       tc.ID,
		Type:     "function",
		Function: wireToolFunction{Name: tc.Name, Arguments: string(args)},
	})
}

// UnmarshalJSON parses the wire form back into a ToolCall.
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var w struct {
		ID       string `json:"id"`
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tc.ID = w.ID
	tc.Name = w.Function.Name
	tc.Arguments = decodeArguments(w.Function.Arguments)
	return nil
}

// decodeArguments unpacks the wire encoding of tool-call arguments. The
// standard form is a JSON string containing an object; some servers send the
// object directly, which is accepted as-is.
func decodeArguments(raw json.RawMessage) json.RawMessage {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return json.RawMessage(`{}`)
		}
		return json.RawMessage(s)
	}
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return raw
}

// ToolResult is the text outcome of executing one tool call, matched back to
// the call by id. IsError marks results produced from a converted failure; it
// informs rendering only and never reaches the wire.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Message converts the result to its wire form.
func (r ToolResult) Message() Message {
	return ToolMessage(r.ToolCallID, r.Content)
}

// ToolDefinition is one entry of the generated tool schema: the function name,
// its description, and a JSON-Schema parameters object.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request carries one completion call's inputs.
type Request struct {
	Model     string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// Usage tracks token consumption as reported by the endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a single assistant reply.
type Response struct {
	ID      string
	Model   string
	Message Message
	Usage   Usage
}
