// Package llm provides a small chat-completion client with pluggable provider
// adapters.
//
// The data model is wire-shaped: Message marshals to exactly the JSON the
// chat-completions endpoint expects, so conversation history accumulated by a
// caller is sent back verbatim on every request. ToolCall hides the one wart
// of the protocol (arguments encoded as a JSON string inside the function
// envelope) behind custom JSON methods and presents arguments as a raw JSON
// object.
//
// Two adapters ship with the package. OpenAIAdapter talks HTTP to any
// OpenAI-compatible endpoint and is the default. GollmAdapter delegates to the
// gollm library for providers without a compatible endpoint; it returns plain
// text only, leaving tool-call recovery to a textual grammar downstream.
//
// Client wraps an adapter with an optional middleware chain. Middleware is
// how cross-cutting concerns attach to the completion path; LoggingMiddleware
// is the only stage shipped here.
//
// Errors split into two camps. TransportError means the endpoint was never
// successfully spoken to and carries the cause. APIError and its subtypes
// (AuthenticationError, RateLimitError, InvalidRequestError, ServerError)
// mean the endpoint answered with a failure status; ErrorFromStatusCode picks
// the subtype. The package never retries: a failed call reports its error
// and the caller decides what a turn is worth.
package llm
