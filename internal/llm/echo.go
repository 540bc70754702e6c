package llm

import "context"

// EchoProvider answers every prompt with its user message. It needs no
// credential and is meant for local development.
type EchoProvider struct{}

func (EchoProvider) Name() string { return "echo" }

func (EchoProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{
		Content:    prompt.UserText(),
		Model:      opts.ModelOr("echo"),
		StopReason: "stop",
	}, nil
}
