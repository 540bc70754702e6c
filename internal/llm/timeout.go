package llm

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 60 * time.Second

// TimeoutProvider wraps a Provider with a per-call deadline. It makes exactly
// one attempt per call and never retries; failures come back as *ProviderError.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// NewTimeoutProvider wraps inner. A non-positive timeout selects DefaultTimeout.
func NewTimeoutProvider(inner Provider, timeout time.Duration) *TimeoutProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TimeoutProvider{inner: inner, timeout: timeout}
}

// Name returns the underlying provider name.
func (t *TimeoutProvider) Name() string {
	return t.inner.Name()
}

// Timeout returns the per-call deadline.
func (t *TimeoutProvider) Timeout() time.Duration {
	return t.timeout
}

// Complete calls the inner provider once under the configured deadline.
func (t *TimeoutProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.inner.Complete(callCtx, prompt, opts)
	if err != nil {
		return nil, AsProviderError(t.inner.Name(), err)
	}
	return resp, nil
}

// WrapWithTimeout is a convenience function to wrap a provider from config.
func WrapWithTimeout(provider Provider, cfg ProviderConfig) Provider {
	if provider == nil {
		return nil
	}
	return NewTimeoutProvider(provider, cfg.Timeout)
}
