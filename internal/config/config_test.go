package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate_Defaults(t *testing.T) {
	warnings := Default().Validate()
	if len(warnings) != 0 {
		t.Errorf("default config should have no warnings, got %v", warnings)
	}
}

func TestValidate_InvalidTemperature(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want bool // true = should warn
	}{
		{"zero", 0, false},
		{"normal", 0.7, false},
		{"max", 2.0, false},
		{"negative", -1, true},
		{"too_high", 3.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LLM.Temperature = tt.temp
			if got := hasWarning(cfg.Validate(), "temperature"); got != tt.want {
				t.Errorf("temperature=%.1f: hasWarn=%v, want=%v", tt.temp, got, tt.want)
			}
		})
	}
}

func TestValidate_NegativeMaxTokens(t *testing.T) {
	cfg := Default()
	cfg.LLM.MaxTokens = -100
	if !hasWarning(cfg.Validate(), "max_tokens") {
		t.Error("expected warning about negative max_tokens")
	}
}

func TestValidate_TimeoutOrdering(t *testing.T) {
	cfg := Default()
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Client.Timeout = 10 * time.Second
	warnings := cfg.Validate()
	if !hasWarning(warnings, "write_timeout") {
		t.Error("expected warning about write_timeout")
	}
	if !hasWarning(warnings, "client timeout") {
		t.Error("expected warning about client timeout")
	}
}

func TestValidate_SecretsProvider(t *testing.T) {
	cfg := Default()
	cfg.Secrets.Provider = "keyring"
	if !hasWarning(cfg.Validate(), "unknown") {
		t.Error("expected warning about unknown secrets provider")
	}

	cfg = Default()
	cfg.Secrets.Provider = "file"
	if !hasWarning(cfg.Validate(), "file_path") {
		t.Error("expected warning about missing file_path")
	}

	cfg = Default()
	cfg.Secrets.Provider = "vault"
	if !hasWarning(cfg.Validate(), "vault.address") {
		t.Error("expected warning about missing vault address")
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Server.ListenAddr)
	}
	if cfg.LLM.DefaultModel != "gpt-4o-mini" {
		t.Errorf("expected gpt-4o-mini, got %q", cfg.LLM.DefaultModel)
	}
	if cfg.LLM.DefaultInstruction != "You are a helpful assistant." {
		t.Errorf("unexpected default instruction %q", cfg.LLM.DefaultInstruction)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected 60s llm timeout, got %v", cfg.LLM.Timeout)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gptwork.yaml")
	content := `
server:
  listen_addr: "127.0.0.1:9999"
llm:
  provider: echo
  timeout: 5s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GPTWORK_LLM_DEFAULT_MODEL", "gpt-4o")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("expected file listen addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.LLM.Provider != "echo" {
		t.Errorf("expected echo provider, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.LLM.DefaultModel != "gpt-4o" {
		t.Errorf("expected env override gpt-4o, got %q", cfg.LLM.DefaultModel)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	// Untouched keys keep defaults.
	if cfg.Server.MaxBodyBytes != 1<<20 {
		t.Errorf("expected default max body, got %d", cfg.Server.MaxBodyBytes)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
