package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionHandler(t *testing.T, gotBody *map[string]interface{}, gotReq **http.Request) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		if gotReq != nil {
			*gotReq = r.Clone(r.Context())
		}
		if gotBody != nil {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err := json.Unmarshal(body, gotBody); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"resp_1","model":"test","choices":[{"message":{"role":"assistant","content":"hi"}}]}`)
	}
}

func TestOpenAIAdapterRequestShape(t *testing.T) {
	var body map[string]interface{}
	var req *http.Request
	server := httptest.NewServer(completionHandler(t, &body, &req))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "test-key")
	_, err := adapter.Complete(context.Background(), Request{
		Messages:  []Message{SystemMessage("sys"), UserMessage("hi")},
		MaxTokens: 8192,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.URL.Path != "/chat/completions" {
		t.Errorf("expected path /chat/completions, got %s", req.URL.Path)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	if body["max_tokens"] != float64(8192) {
		t.Errorf("expected max_tokens 8192, got %v", body["max_tokens"])
	}
	msgs, ok := body["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %v", body["messages"])
	}
	// The tools field is always sent, even when no tools are registered.
	if _, ok := body["tools"]; !ok {
		t.Error("expected tools field to be present")
	}
	if _, ok := body["model"]; ok {
		t.Error("model should be omitted when unset")
	}
}

func TestOpenAIAdapterModelIncluded(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(completionHandler(t, &body, nil))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "k")
	_, err := adapter.Complete(context.Background(), Request{Model: "glm-4.6", MaxTokens: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["model"] != "glm-4.6" {
		t.Errorf("expected model glm-4.6, got %v", body["model"])
	}
}

func TestOpenAIAdapterToolsOnWire(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(completionHandler(t, &body, nil))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "k")
	_, err := adapter.Complete(context.Background(), Request{
		MaxTokens: 1,
		Tools: []ToolDefinition{{
			Name:        "read",
			Description: "Read file with line numbers (file path, not directory)",
			Parameters:  map[string]interface{}{"type": "object"},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tools, ok := body["tools"].([]interface{})
	if !ok || len(tools) != 1 {
		t.Fatalf("expected 1 tool on the wire, got %v", body["tools"])
	}
	tool := tools[0].(map[string]interface{})
	if tool["type"] != "function" {
		t.Errorf("expected function envelope, got %v", tool["type"])
	}
	fn := tool["function"].(map[string]interface{})
	if fn["name"] != "read" {
		t.Errorf("expected tool name read, got %v", fn["name"])
	}
}

func TestOpenAIAdapterParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "resp_9",
			"model": "test",
			"choices": [{"message": {
				"role": "assistant",
				"content": null,
				"tool_calls": [{"id": "call_0", "type": "function", "function": {"name": "bash", "arguments": "{\"cmd\":\"ls\"}"}}]
			}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "k")
	resp, err := adapter.Complete(context.Background(), Request{MaxTokens: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.Message.ToolCalls))
	}
	call := resp.Message.ToolCalls[0]
	if call.ID != "call_0" || call.Name != "bash" {
		t.Errorf("unexpected call identity: %+v", call)
	}
	var args map[string]interface{}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("arguments are not a JSON object: %v", err)
	}
	if args["cmd"] != "ls" {
		t.Errorf("expected cmd ls, got %v", args["cmd"])
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIAdapterStatusErrors(t *testing.T) {
	tests := []struct {
		status     int
		body       string
		expectType string
		expectMsg  string
	}{
		{401, `{"error":{"message":"invalid api key"}}`, "*llm.AuthenticationError", "invalid api key"},
		{429, `{"error":{"message":"slow down"}}`, "*llm.RateLimitError", "slow down"},
		{500, `upstream exploded`, "*llm.ServerError", "upstream exploded"},
		{400, `{"error":{"message":"bad request"}}`, "*llm.InvalidRequestError", "bad request"},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, tt.body)
		}))

		adapter := NewOpenAIAdapter(server.URL, "k")
		_, err := adapter.Complete(context.Background(), Request{MaxTokens: 1})
		server.Close()
		if err == nil {
			t.Errorf("status %d: expected error", tt.status)
			continue
		}

		if got := fmt.Sprintf("%T", err); got != tt.expectType {
			t.Errorf("status %d: expected %s, got %s", tt.status, tt.expectType, got)
		}
		if !strings.Contains(err.Error(), tt.expectMsg) {
			t.Errorf("status %d: expected message %q in %q", tt.status, tt.expectMsg, err.Error())
		}
	}
}

func TestOpenAIAdapterNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"resp_1","choices":[]}`)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "k")
	_, err := adapter.Complete(context.Background(), Request{MaxTokens: 1})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestOpenAIAdapterErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL, "k")
	_, err := adapter.Complete(context.Background(), Request{MaxTokens: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "model not found" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestOpenAIAdapterTrailingSlash(t *testing.T) {
	var req *http.Request
	server := httptest.NewServer(completionHandler(t, nil, &req))
	defer server.Close()

	adapter := NewOpenAIAdapter(server.URL+"/", "k")
	if _, err := adapter.Complete(context.Background(), Request{MaxTokens: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.Path != "/chat/completions" {
		t.Errorf("expected normalized path, got %s", req.URL.Path)
	}
}

func TestOpenAIAdapterConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	adapter := NewOpenAIAdapter(url, "k")
	_, err := adapter.Complete(context.Background(), Request{MaxTokens: 1})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
