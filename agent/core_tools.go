package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxGrepHits = 50

// RegisterCoreTools registers the built-in toolset. Registration order is the
// order the model sees the tools in.
func RegisterCoreTools(reg *Registry) {
	reg.Register(Tool{
		Name:        "read",
		Description: "Read file with line numbers (file path, not directory)",
		Params: []Param{
			{Name: "path", Type: "string"},
			{Name: "offset", Type: "number?"},
			{Name: "limit", Type: "number?"},
		},
		Handler: readHandler,
	})
	reg.Register(Tool{
		Name:        "write",
		Description: "Write content to file",
		Params: []Param{
			{Name: "path", Type: "string"},
			{Name: "content", Type: "string"},
		},
		Handler: writeHandler,
	})
	reg.Register(Tool{
		Name:        "edit",
		Description: "Replace old with new in file (old must be unique unless all=true)",
		Params: []Param{
			{Name: "path", Type: "string"},
			{Name: "old", Type: "string"},
			{Name: "new", Type: "string"},
			{Name: "all", Type: "boolean?"},
		},
		Handler: editHandler,
	})
	reg.Register(Tool{
		Name:        "glob",
		Description: "Find files by pattern, sorted by mtime",
		Params: []Param{
			{Name: "pat", Type: "string"},
			{Name: "path", Type: "string?"},
		},
		Handler: globHandler,
	})
	reg.Register(Tool{
		Name:        "grep",
		Description: "Search files for regex pattern",
		Params: []Param{
			{Name: "pat", Type: "string"},
			{Name: "path", Type: "string?"},
		},
		Handler: grepHandler,
	})
	reg.Register(Tool{
		Name:        "bash",
		Description: "Run shell command",
		Params: []Param{
			{Name: "cmd", Type: "string"},
		},
		Handler: bashHandler,
	})
}

func readHandler(_ context.Context, args Args, env ExecutionEnvironment) (string, error) {
	content, err := env.ReadFile(args.String("path", ""))
	if err != nil {
		return "", err
	}
	lines := splitLines(content)
	offset := args.Int("offset", 0)
	// An omitted limit means everything from offset on.
	limit := args.Int("limit", len(lines))
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	if limit < 0 {
		limit = 0
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}
	numbered := make([]string, 0, end-offset)
	for i, line := range lines[offset:end] {
		numbered = append(numbered, fmt.Sprintf("%4d| %s", offset+i+1, line))
	}
	return strings.Join(numbered, "\n"), nil
}

func writeHandler(_ context.Context, args Args, env ExecutionEnvironment) (string, error) {
	if err := env.WriteFile(args.String("path", ""), args.String("content", "")); err != nil {
		return "", err
	}
	return "ok", nil
}

func editHandler(_ context.Context, args Args, env ExecutionEnvironment) (string, error) {
	path := args.String("path", "")
	old := args.String("old", "")
	replacement := args.String("new", "")
	all := args.Bool("all", false)

	content, err := env.ReadFile(path)
	if err != nil {
		return "", err
	}
	count := strings.Count(content, old)
	if count == 0 {
		return "", errors.New("old_string not found")
	}
	if count > 1 && !all {
		return "", fmt.Errorf("old_string appears %d times, must be unique (use all=true)", count)
	}
	if all {
		content = strings.ReplaceAll(content, old, replacement)
	} else {
		content = strings.Replace(content, old, replacement, 1)
	}
	if err := env.WriteFile(path, content); err != nil {
		return "", err
	}
	return "ok", nil
}

func globHandler(_ context.Context, args Args, env ExecutionEnvironment) (string, error) {
	matches, err := env.Glob(args.String("pat", ""), args.String("path", "."))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "none", nil
	}
	return strings.Join(matches, "\n"), nil
}

func grepHandler(_ context.Context, args Args, env ExecutionEnvironment) (string, error) {
	hits, err := env.Grep(args.String("pat", ""), args.String("path", "."), maxGrepHits)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "none", nil
	}
	return strings.Join(hits, "\n"), nil
}

func bashHandler(ctx context.Context, args Args, env ExecutionEnvironment) (string, error) {
	res, err := env.ExecShell(ctx, args.String("cmd", ""), ToolOutput(ctx))
	if err != nil {
		return "", err
	}
	output := res.Output
	if res.TimedOut {
		output += "\n(timed out after 30s)"
	}
	output = strings.TrimSpace(output)
	if output == "" {
		output = "(empty)"
	}
	return output, nil
}
