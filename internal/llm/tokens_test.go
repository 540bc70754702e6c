package llm

import "testing"

func TestCountTokens(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Errorf("empty text: got %d tokens", got)
	}
	short := CountTokens("hello")
	long := CountTokens("hello there, this sentence is quite a bit longer than the first")
	if short <= 0 {
		t.Errorf("expected positive count, got %d", short)
	}
	if long <= short {
		t.Errorf("expected longer text to need more tokens: %d <= %d", long, short)
	}
}

func TestPromptCountTokens(t *testing.T) {
	bare := NewExchange("", "hi")
	withSystem := NewExchange("Summarize the text.", "hi")

	if got, want := bare.CountTokens(), 3+4+CountTokens("user")+CountTokens("hi"); got != want {
		t.Errorf("bare exchange: got %d, want %d", got, want)
	}
	if withSystem.CountTokens() <= bare.CountTokens() {
		t.Error("system prompt should add tokens")
	}
}
