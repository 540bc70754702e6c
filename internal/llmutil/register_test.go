package llmutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/gptwork/internal/llm"
)

func TestNewFactory_RegistersPresets(t *testing.T) {
	names := NewFactory().Names()
	for _, want := range []string{"anthropic", "openai", "echo", "groq", "ollama", "together", "deepseek", "custom"} {
		assert.Contains(t, names, want)
	}
}

func TestNewFactory_CreatesEchoProvider(t *testing.T) {
	p, err := NewFactory().Create(llm.ProviderConfig{Provider: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo", p.Name())

	resp, err := p.Complete(context.Background(), llm.NewExchange("sys", "hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestNewFactory_OpenAICompatiblePresetsUseOpenAIClient(t *testing.T) {
	p, err := NewFactory().Create(llm.ProviderConfig{Provider: "groq", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
