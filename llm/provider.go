package llm

import "context"

// ProviderAdapter is the contract each completion backend implements. Complete
// blocks until the endpoint answers or the context is done.
type ProviderAdapter interface {
	// Name returns the provider's identifier, e.g. "openai".
	Name() string

	// Complete sends one request and returns the assistant's reply.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CompleteFunc is the call signature shared by adapters and middleware stages.
type CompleteFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a completion call. Implementations may inspect the request
// and response, and must call next exactly once unless they fail the call.
type Middleware func(ctx context.Context, req Request, next CompleteFunc) (*Response, error)
