// Package llmutil wires the built-in LLM providers into a factory.
package llmutil

import (
	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/internal/llm/anthropic"
	"github.com/efebarandurmaz/gptwork/internal/llm/openai"
)

// RegisterDefaultProviders registers all built-in LLM provider constructors
// (openai, anthropic, echo and every OpenAI-compatible preset) into factory.
func RegisterDefaultProviders(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(openai.Config{APIKey: c.APIKey, Model: c.Model, BaseURL: c.BaseURL}), nil
	})
	factory.Register("echo", func(c llm.ProviderConfig) (llm.Provider, error) {
		return llm.EchoProvider{}, nil
	})
	// All OpenAI-compatible providers
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"deepseek", llm.KnownProviders["deepseek"]},
		{"custom", ""},
	} {
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(openai.Config{APIKey: c.APIKey, Model: c.Model, BaseURL: base}), nil
		})
	}
}

// NewFactory returns a factory with the default providers registered.
func NewFactory() *llm.ProviderFactory {
	f := llm.NewFactory()
	RegisterDefaultProviders(f)
	return f
}
