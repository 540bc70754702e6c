package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewFactory(t *testing.T) {
	f := NewFactory()
	if f == nil {
		t.Fatal("expected non-nil factory")
	}
	if len(f.constructors) != 0 {
		t.Fatalf("expected empty factory, got %d constructors", len(f.constructors))
	}
}

func TestFactoryRegister(t *testing.T) {
	f := NewFactory()
	called := false
	f.Register("test-provider", func(cfg ProviderConfig) (Provider, error) {
		called = true
		return nil, nil
	})

	if len(f.constructors) != 1 {
		t.Fatalf("expected 1 constructor, got %d", len(f.constructors))
	}

	f.constructors["test-provider"](ProviderConfig{})
	if !called {
		t.Fatal("constructor was not called")
	}
}

func TestFactoryCreate_EmptyProvider(t *testing.T) {
	f := NewFactory()

	p, err := f.Create(ProviderConfig{Provider: ""})
	if err == nil {
		t.Fatal("expected error for empty provider")
	}
	if p != nil {
		t.Fatal("expected nil provider")
	}
}

func TestFactoryCreate_UnknownProvider(t *testing.T) {
	f := NewFactory()
	f.Register("provider1", func(cfg ProviderConfig) (Provider, error) { return nil, nil })
	f.Register("provider2", func(cfg ProviderConfig) (Provider, error) { return nil, nil })

	_, err := f.Create(ProviderConfig{Provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "provider1") || !strings.Contains(err.Error(), "provider2") {
		t.Fatalf("expected registered names in error, got: %v", err)
	}
}

func TestFactoryCreate_WrapsWithTimeout(t *testing.T) {
	f := NewFactory()
	inner := &mockTestProvider{name: "inner"}
	f.Register("test", func(cfg ProviderConfig) (Provider, error) {
		return inner, nil
	})

	p, err := f.Create(ProviderConfig{Provider: "test", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tp, ok := p.(*TimeoutProvider)
	if !ok {
		t.Fatalf("expected TimeoutProvider wrapper, got %T", p)
	}
	if tp.Name() != "inner" {
		t.Fatalf("expected inner name, got %q", tp.Name())
	}
	if tp.Timeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", tp.Timeout())
	}
}

func TestFactoryCreate_ConstructorError(t *testing.T) {
	f := NewFactory()
	expectedErr := errors.New("constructor failed")
	f.Register("failing", func(cfg ProviderConfig) (Provider, error) {
		return nil, expectedErr
	})

	p, err := f.Create(ProviderConfig{Provider: "failing"})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected constructor error, got: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil provider on error")
	}
}

func TestFactoryNames_Sorted(t *testing.T) {
	f := NewFactory()
	for _, n := range []string{"openai", "echo", "anthropic"} {
		f.Register(n, func(cfg ProviderConfig) (Provider, error) { return nil, nil })
	}
	got := strings.Join(f.Names(), ",")
	if got != "anthropic,echo,openai" {
		t.Fatalf("unexpected names %q", got)
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected %v timeout, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.Provider != "openai" {
		t.Errorf("expected openai provider, got %q", cfg.Provider)
	}
}

func TestNeedsAPIKey(t *testing.T) {
	if NeedsAPIKey("echo") {
		t.Error("echo must not need a key")
	}
	if !NeedsAPIKey("openai") {
		t.Error("openai must need a key")
	}
}

func TestKnownProviders(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "groq", "ollama", "together", "deepseek"} {
		if _, ok := KnownProviders[name]; !ok {
			t.Errorf("expected provider %q to be in KnownProviders", name)
		}
	}
}

// mockTestProvider is a simple mock for testing
type mockTestProvider struct {
	name string
}

func (m *mockTestProvider) Name() string {
	return m.name
}

func (m *mockTestProvider) Complete(_ context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	return &Response{Content: "test"}, nil
}
