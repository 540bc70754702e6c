package llm

import "context"

// Provider is the interface all chat-completion backends must implement.
type Provider interface {
	// Complete sends a prompt and returns the first completion choice.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
}

// RequestOptions tunes a single completion call.
type RequestOptions struct {
	// Model overrides the provider's configured model for this call.
	Model       string
	MaxTokens   *int
	Temperature *float64
}

// ModelOr returns opts.Model, or fallback when opts is nil or names no model.
func (o *RequestOptions) ModelOr(fallback string) string {
	if o == nil || o.Model == "" {
		return fallback
	}
	return o.Model
}
