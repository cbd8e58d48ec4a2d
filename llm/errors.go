package llm

import "fmt"

// TransportError is a failure to reach the completion endpoint or to decode
// what it sent back. It aborts the turn in progress and nothing else; the
// conversation history is left exactly as it was before the call.
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// APIError is a non-success answer from the completion endpoint. Message holds
// the server's error message when one could be parsed out of the body.
type APIError struct {
	Message    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates a rejected or missing API key.
type AuthenticationError struct {
	APIError
}

// RateLimitError indicates the endpoint refused the call due to rate limits.
type RateLimitError struct {
	APIError
}

// InvalidRequestError indicates the endpoint rejected the request payload.
type InvalidRequestError struct {
	APIError
}

// ServerError indicates a failure on the endpoint's side.
type ServerError struct {
	APIError
}

// ErrorFromStatusCode maps an HTTP status code to the matching error type.
func ErrorFromStatusCode(statusCode int, message, body string) error {
	apiErr := APIError{
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
	}
	switch {
	case statusCode == 401 || statusCode == 403:
		return &AuthenticationError{APIError: apiErr}
	case statusCode == 429:
		return &RateLimitError{APIError: apiErr}
	case statusCode >= 500:
		return &ServerError{APIError: apiErr}
	case statusCode >= 400:
		return &InvalidRequestError{APIError: apiErr}
	default:
		return &apiErr
	}
}
