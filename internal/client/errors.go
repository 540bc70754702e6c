package client

import "fmt"

// ValidationError is raised before any request is sent. Message is the
// user-facing warning.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProviderError is a non-200 answer from the proxy. Message is the response
// body verbatim, or "HTTP <status>" when the body was empty.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string { return e.Message }

// TransportError wraps a failure to reach the proxy at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func newProviderError(status int, body string) *ProviderError {
	if body == "" {
		body = fmt.Sprintf("HTTP %d", status)
	}
	return &ProviderError{StatusCode: status, Message: body}
}
