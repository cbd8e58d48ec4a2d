// Package config loads the runtime configuration from defaults, an optional
// YAML file, and the environment, in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the immutable runtime configuration.
type Config struct {
	// APIBase is the chat-completions endpoint root. A trailing slash is
	// tolerated and trimmed.
	APIBase string `yaml:"api_base" env:"API_BASE"`
	// APIKey is sent as a Bearer token on every request.
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Model is sent with each request when non-empty. Single-model servers
	// need none.
	Model string `yaml:"model" env:"MODEL"`
	// Parser names the textual tool-call grammar (e.g. "glm") for models
	// that write calls into their reply text instead of structured calls.
	Parser string `yaml:"tool_call_parser" env:"TOOL_CALL_PARSER"`
	// Provider picks the backend adapter: "openai" for any OpenAI-compatible
	// endpoint, or a gollm provider name such as "anthropic" or "ollama".
	Provider string `yaml:"provider" env:"PROVIDER"`
	// MaxTokens caps each reply.
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Debug enables debug logging on stderr.
	Debug bool `yaml:"debug" env:"DEBUG"`
}

// Default returns the built-in configuration: an anonymous local server
// speaking the OpenAI protocol.
func Default() Config {
	return Config{
		APIBase:   "http://localhost:8080/v1",
		Provider:  "openai",
		MaxTokens: 8192,
	}
}

// Load builds the configuration by layering the YAML file at path, when it
// exists, and then the environment over the defaults. An empty path skips
// the file layer; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Provider == "openai" && c.APIBase == "" {
		return fmt.Errorf("api_base is required for the openai provider")
	}
	if c.Provider != "openai" && c.Model == "" {
		return fmt.Errorf("provider %q requires a model", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}
