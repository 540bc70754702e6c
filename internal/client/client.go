// Package client calls the completion proxy on behalf of one field run.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/gptwork/internal/config"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

// DefaultTimeout bounds one client to proxy round trip. It exceeds the
// proxy's provider timeout so the proxy reports upstream timeouts first.
const DefaultTimeout = 90 * time.Second

const (
	MsgMissingInstruction = "Add an instruction first."
	MsgMissingInput       = "Add input text to process."
)

// Client is safe for concurrent use; every call is independent.
type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New returns a client for the proxy at apiBase.
func New(apiBase string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(apiBase, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the client config section.
func NewFromConfig(cfg config.ClientConfig) *Client {
	return New(cfg.APIBase, WithTimeout(cfg.Timeout))
}

// APIBase returns the proxy base URL.
func (c *Client) APIBase() string { return c.base }

// Validate checks the run preconditions, instruction first.
func Validate(instruction, input string) error {
	if strings.TrimSpace(instruction) == "" {
		return &ValidationError{Field: "instruction", Message: MsgMissingInstruction}
	}
	if strings.TrimSpace(input) == "" {
		return &ValidationError{Field: "input", Message: MsgMissingInput}
	}
	return nil
}

// Run validates req and, if it passes, sends it. A failed validation never
// touches the network.
func (c *Client) Run(ctx context.Context, req api.CompletionRequest) (string, error) {
	if err := Validate(req.Instruction, req.Input); err != nil {
		return "", err
	}
	return c.Complete(ctx, req)
}

// Complete POSTs req to the proxy's chat endpoint once.
func (c *Client) Complete(ctx context.Context, req api.CompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, api.JoinURL(c.base, api.ChatPath), bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", newProviderError(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out api.CompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Answer, nil
}

// ErrNotOK is returned by Ping when the proxy answers without ok:true.
var ErrNotOK = errors.New("proxy did not report ok")

// Ping checks that the proxy is reachable.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, api.JoinURL(c.base, api.PingPath), nil)
	if err != nil {
		return &TransportError{Err: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return newProviderError(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out api.PingResponse
	if err := json.Unmarshal(data, &out); err != nil || !out.OK {
		return ErrNotOK
	}
	return nil
}
