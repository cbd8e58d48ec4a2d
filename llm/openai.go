package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIAdapter speaks the OpenAI-compatible chat-completions protocol. It
// works against hosted endpoints and local servers (llama.cpp, vLLM, Ollama)
// alike; anything that answers POST {base}/v1/chat/completions.
type OpenAIAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*OpenAIAdapter)

// WithHTTPClient replaces the adapter's HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(a *OpenAIAdapter) {
		a.httpClient = hc
	}
}

// NewOpenAIAdapter creates an adapter for the endpoint rooted at baseURL.
// A trailing slash on baseURL is tolerated. The key is sent as a Bearer token
// on every request.
func NewOpenAIAdapter(baseURL, apiKey string, opts ...OpenAIOption) *OpenAIAdapter {
	a := &OpenAIAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements ProviderAdapter.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

type chatCompletionRequest struct {
	MaxTokens int        `json:"max_tokens"`
	Messages  []Message  `json:"messages"`
	Tools     []wireTool `json:"tools"`
	Model     string     `json:"model,omitempty"`
}

type wireTool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete implements ProviderAdapter.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	tools := make([]wireTool, 0, len(req.Tools))
	for _, def := range req.Tools {
		tools = append(tools, wireTool{Type: "function", Function: def})
	}
	payload := chatCompletionRequest{
		MaxTokens: req.MaxTokens,
		Messages:  req.Messages,
		Tools:     tools,
		Model:     req.Model,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Message: "encode request", Cause: err}
	}

	url := a.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Message: "post " + url, Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Message: "read response", Cause: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, ErrorFromStatusCode(httpResp.StatusCode, serverErrorMessage(respBody), string(respBody))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &TransportError{Message: "decode response", Cause: err}
	}
	if parsed.Error != nil {
		return nil, &APIError{Message: parsed.Error.Message, StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &TransportError{Message: "response contained no choices"}
	}

	return &Response{
		ID:      parsed.ID,
		Model:   parsed.Model,
		Message: parsed.Choices[0].Message,
		Usage:   parsed.Usage,
	}, nil
}

// serverErrorMessage pulls error.message out of a failure body, falling back
// to the trimmed body itself.
func serverErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
