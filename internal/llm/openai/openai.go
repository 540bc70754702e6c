// Package openai implements llm.Provider on top of the official OpenAI Go SDK.
// Any OpenAI-compatible chat completion endpoint works through BaseURL.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures the client.
type Config struct {
	APIKey  string
	Model   string // used when a request names no model
	BaseURL string
	// HTTPClient replaces the SDK's default transport when set.
	HTTPClient *http.Client
}

// Client implements llm.Provider for OpenAI-compatible APIs.
type Client struct {
	cli     openai.Client
	model   string
	baseURL string
}

// New creates an OpenAI-compatible provider. SDK-level retries are disabled:
// every Complete call is exactly one upstream request.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = api.DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		cli:     openai.NewClient(opts...),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
	}
}

func (c *Client) Name() string { return "openai" }

// Complete sends the prompt as a system message followed by the prompt's
// messages and returns choices[0].message.content. A response without choices
// yields an empty Content, not an error.
func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(opts.ModelOr(c.model)),
		Messages: toChatMessages(prompt),
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			params.MaxCompletionTokens = openai.Int(int64(*opts.MaxTokens))
		}
		if opts.Temperature != nil {
			params.Temperature = openai.Float(*opts.Temperature)
		}
	}

	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, toProviderError(err)
	}

	out := &llm.Response{
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.StopReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

func toChatMessages(prompt *llm.Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	msgs = append(msgs, openai.SystemMessage(prompt.SystemPrompt))
	for _, m := range prompt.Messages {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}

// toProviderError keeps the upstream status and the provider's own message.
func toProviderError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		cause := err
		if apiErr.Message != "" {
			cause = errors.New(apiErr.Message)
		}
		return &llm.ProviderError{
			Provider:   "openai",
			StatusCode: apiErr.StatusCode,
			Err:        cause,
		}
	}
	return llm.AsProviderError("openai", err)
}
