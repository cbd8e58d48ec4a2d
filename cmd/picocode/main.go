package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/yantea/picocode/agent"
	"github.com/yantea/picocode/config"
	"github.com/yantea/picocode/extract"
	"github.com/yantea/picocode/llm"
)

const (
	ansiReset = "\x1b[0m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[96m"
	ansiGreen = "\x1b[92m"
	ansiRed   = "\x1b[91m"
)

func main() {
	configPath := flag.String("config", "picocode.yaml", "path to the YAML config file")
	flag.Parse()

	// A .env in the working directory feeds the environment layer.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	client, err := buildClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	registry := agent.NewRegistry()
	agent.RegisterCoreTools(registry)

	parsers := extract.NewRegistry()
	if cfg.Parser != "" {
		if _, ok := parsers.Lookup(cfg.Parser); !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown tool call parser %q\n", cfg.Parser)
			os.Exit(1)
		}
	}

	env := agent.NewLocalExecutionEnvironment("")
	ui := newUI(registry)

	session := agent.NewSession(client, registry, parsers, env, &agent.SessionConfig{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Parser:    cfg.Parser,
		Sink:      ui.handleEvent,
		Logger:    logger,
	})

	runREPL(session, env, cfg, ui)
}

func buildClient(cfg config.Config, logger *slog.Logger) (*llm.Client, error) {
	var adapter llm.ProviderAdapter
	if cfg.Provider == "openai" {
		adapter = llm.NewOpenAIAdapter(cfg.APIBase, cfg.APIKey)
	} else {
		gollmAdapter, err := llm.NewGollmAdapter(cfg.Provider, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		adapter = gollmAdapter
	}
	return llm.NewClient(
		llm.WithProvider(adapter),
		llm.WithMiddleware(llm.LoggingMiddleware(logger)),
	)
}

func runREPL(session *agent.Session, env agent.ExecutionEnvironment, cfg config.Config, ui *consoleUI) {
	model := cfg.Model
	if model == "" {
		model = "default"
	}
	fmt.Printf("%spicocode | %s | %s%s\n", ansiDim, model, env.WorkingDirectory(), ansiReset)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	// Ctrl-C cancels the turn in flight; at the prompt it exits.
	var cancelMu sync.Mutex
	var cancelTurn context.CancelFunc
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			cancelMu.Lock()
			if cancelTurn != nil {
				fmt.Fprintln(os.Stderr, "\n[interrupted]")
				cancelTurn()
				cancelMu.Unlock()
				continue
			}
			cancelMu.Unlock()
			fmt.Println()
			os.Exit(0)
		}
	}()

	for {
		fmt.Println(ansiDim + strings.Repeat("─", ui.width) + ansiReset)
		fmt.Print("❯ ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/q" || input == "exit" {
			break
		}
		if input == "/c" {
			session.Clear()
			fmt.Println(ansiGreen + "⏺ Cleared conversation" + ansiReset)
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancelMu.Lock()
		cancelTurn = cancel
		cancelMu.Unlock()

		_, err := session.Run(ctx, input)

		cancelMu.Lock()
		cancelTurn = nil
		cancelMu.Unlock()
		cancel()

		if err != nil {
			fmt.Printf("%s⏺ Error: %v%s\n", ansiRed, err, ansiReset)
		}
	}
}

// consoleUI renders session events to the terminal.
type consoleUI struct {
	registry *agent.Registry
	renderer *glamour.TermRenderer
	width    int
}

func newUI(registry *agent.Registry) *consoleUI {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		renderer = nil
	}
	return &consoleUI{registry: registry, renderer: renderer, width: width}
}

func (u *consoleUI) handleEvent(e agent.Event) {
	switch e.Kind {
	case agent.EventAssistantText:
		if e.Text != "" {
			fmt.Println(ansiCyan + "⏺" + ansiReset + " " + u.markdown(e.Text))
		}
	case agent.EventToolCallStart:
		fmt.Printf("%s⏺ %s(%s)%s\n", ansiGreen, capitalize(e.Call.Name), u.argPreview(e.Call), ansiReset)
	case agent.EventToolOutput:
		fmt.Println(ansiDim + "│ " + e.Text + ansiReset)
	case agent.EventToolCallEnd:
		fmt.Println(ansiDim + "  ⎿ " + resultPreview(e.Result.Content) + ansiReset)
	}
}

// markdown renders assistant text for the terminal, falling back to the raw
// text when rendering is unavailable.
func (u *consoleUI) markdown(text string) string {
	if u.renderer == nil {
		return text
	}
	out, err := u.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// argPreview shows the first declared argument's value, truncated, so a call
// line reads like read(main.go).
func (u *consoleUI) argPreview(call llm.ToolCall) string {
	var args map[string]interface{}
	if err := json.Unmarshal(call.Arguments, &args); err != nil || len(args) == 0 {
		return ""
	}
	tool := u.registry.Get(call.Name)
	if tool == nil {
		for _, v := range args {
			return truncate(fmt.Sprint(v), 50)
		}
	}
	for _, p := range tool.Params {
		if v, ok := args[p.Name]; ok {
			return truncate(fmt.Sprint(v), 50)
		}
	}
	return ""
}

// resultPreview compresses a tool result to one line: the first line capped
// at 60 characters, plus a count of what was elided.
func resultPreview(result string) string {
	lines := strings.Split(result, "\n")
	first := truncate(lines[0], 60)
	if len(lines) > 1 {
		return fmt.Sprintf("%s ... +%d lines", first, len(lines)-1)
	}
	if first != lines[0] {
		return first + "..."
	}
	return first
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// capitalize upper-cases the first letter, turning a tool name into its status
// line form: read -> Read.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
