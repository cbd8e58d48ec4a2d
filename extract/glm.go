package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/yantea/picocode/llm"
)

var (
	glmCallPattern = regexp.MustCompile(`(?s)<tool_call>(\w+)((?:<arg_key>.*?</arg_key><arg_value>.*?</arg_value>)*)</tool_call>`)
	glmArgPattern  = regexp.MustCompile(`(?s)<arg_key>(.*?)</arg_key><arg_value>(.*?)</arg_value>`)
)

// GLMParser recovers calls written in the GLM-4 tool-call grammar:
//
//	<tool_call>name<arg_key>k</arg_key><arg_value>v</arg_value>...</tool_call>
//
// A block only counts when it matches the grammar end to end; malformed
// markup never matches and stays in the text untouched.
type GLMParser struct{}

// NewGLMParser returns the parser for the GLM tool-call grammar.
func NewGLMParser() *GLMParser {
	return &GLMParser{}
}

// Name implements Parser.
func (p *GLMParser) Name() string {
	return "glm"
}

// Parse implements Parser. Recognized blocks are stripped from the content
// and trailing whitespace trimmed; ids are assigned positionally as call_0,
// call_1, and so on.
func (p *GLMParser) Parse(content string) Result {
	if content == "" || !strings.Contains(content, "<tool_call>") {
		return Result{Content: content}
	}
	matches := glmCallPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return Result{Content: content}
	}
	calls := make([]llm.ToolCall, 0, len(matches))
	for i, m := range matches {
		calls = append(calls, llm.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      m[1],
			Arguments: parseGLMArguments(m[2]),
		})
	}
	cleaned := glmCallPattern.ReplaceAllString(content, "")
	cleaned = strings.TrimRightFunc(cleaned, unicode.IsSpace)
	return Result{Content: cleaned, ToolCalls: calls}
}

// parseGLMArguments assembles the key/value pairs of one block into a JSON
// object. Each value that is itself valid JSON is embedded as-is; anything
// else becomes a JSON string. Keys keep first-appearance order, and a
// repeated key overwrites its value in place.
func parseGLMArguments(body string) json.RawMessage {
	pairs := glmArgPattern.FindAllStringSubmatch(body, -1)
	var order []string
	values := make(map[string]json.RawMessage, len(pairs))
	for _, kv := range pairs {
		key, raw := kv[1], kv[2]
		var encoded json.RawMessage
		if json.Valid([]byte(raw)) {
			encoded = json.RawMessage(raw)
		} else {
			encoded, _ = json.Marshal(raw)
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = encoded
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, _ := json.Marshal(key)
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(values[key])
	}
	buf.WriteByte('}')
	return json.RawMessage(buf.Bytes())
}
