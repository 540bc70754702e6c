// Package api defines the wire types exchanged between the completion client
// and the completion proxy.
package api

import "strings"

const (
	// DefaultInstruction is the system message used when a request carries none.
	DefaultInstruction = "You are a helpful assistant."
	// DefaultModel is the baseline model used when a request names none.
	DefaultModel = "gpt-4o-mini"

	ChatPath = "/chat"
	PingPath = "/ping"
)

// CompletionRequest is the body of POST /chat. Every field is optional.
type CompletionRequest struct {
	Instruction string `json:"instruction,omitempty"`
	Input       string `json:"input,omitempty"`
	Model       string `json:"model,omitempty"`
}

// WithDefaults returns a copy with empty fields replaced by the given fallbacks.
// Empty fallbacks resolve to DefaultInstruction and DefaultModel.
func (r CompletionRequest) WithDefaults(instruction, model string) CompletionRequest {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	if model == "" {
		model = DefaultModel
	}
	if r.Instruction == "" {
		r.Instruction = instruction
	}
	if r.Model == "" {
		r.Model = model
	}
	return r
}

// CompletionResponse is the success body of POST /chat.
type CompletionResponse struct {
	Answer string `json:"answer"`
}

// PingResponse is the body of /ping.
type PingResponse struct {
	OK bool `json:"ok"`
}

// JoinURL appends path to base, tolerating a trailing slash on base.
func JoinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}
