package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ProviderError reports a failed upstream completion call.
type ProviderError struct {
	Provider string
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatus maps the failure to the status the proxy answers with.
func (e *ProviderError) HTTPStatus() int {
	if e.Timeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// Detail is the short plain-text diagnostic returned to proxy callers.
func (e *ProviderError) Detail() string {
	if e.Timeout {
		return "upstream request timed out"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.HTTPStatus())
}

// AsProviderError wraps err into a *ProviderError unless it already is one.
// Returns nil for a nil err.
func AsProviderError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if !pe.Timeout && isTimeout(err) {
			cp := *pe
			cp.Timeout = true
			return &cp
		}
		return pe
	}
	return &ProviderError{
		Provider: provider,
		Timeout:  isTimeout(err),
		Err:      err,
	}
}

// isTimeout reports whether err came from an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
