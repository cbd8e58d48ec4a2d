package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Client routes completion requests to a registered provider adapter, running
// each call through the configured middleware chain. A Client is immutable
// after construction and safe for concurrent use.
type Client struct {
	mu              sync.RWMutex
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client)

// WithProvider registers an adapter under its own name.
func WithProvider(adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[adapter.Name()] = adapter
	}
}

// WithDefaultProvider sets the provider used when a request does not name one.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends a middleware stage. Stages run in registration order,
// the first registered being outermost.
func WithMiddleware(mw Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw)
	}
}

// NewClient builds a Client from the given options. When exactly one provider
// is registered it becomes the default automatically.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no providers registered")
	}
	if c.defaultProvider == "" {
		if len(c.providers) == 1 {
			for name := range c.providers {
				c.defaultProvider = name
			}
		} else {
			return nil, fmt.Errorf("multiple providers registered and no default set")
		}
	}
	if _, ok := c.providers[c.defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", c.defaultProvider)
	}
	return c, nil
}

// Complete sends the request through the middleware chain to the default
// provider.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	c.mu.RLock()
	adapter := c.providers[c.defaultProvider]
	middleware := c.middleware
	c.mu.RUnlock()

	handler := adapter.Complete
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := handler
		handler = func(ctx context.Context, req Request) (*Response, error) {
			return mw(ctx, req, next)
		}
	}
	return handler(ctx, req)
}

// Provider returns the adapter registered under name.
func (c *Client) Provider(name string) (ProviderAdapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	adapter, ok := c.providers[name]
	return adapter, ok
}

// DefaultProvider returns the name of the provider Complete dispatches to.
func (c *Client) DefaultProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultProvider
}

// LoggingMiddleware records each completion call's shape and outcome on the
// given logger.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, req Request, next CompleteFunc) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logger.Error("completion failed",
				"model", req.Model,
				"messages", len(req.Messages),
				"duration", time.Since(start),
				"error", err)
			return nil, err
		}
		logger.Debug("completion ok",
			"model", resp.Model,
			"messages", len(req.Messages),
			"tool_calls", len(resp.Message.ToolCalls),
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"duration", time.Since(start))
		return resp, nil
	}
}
