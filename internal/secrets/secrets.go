// Package secrets resolves the upstream provider credential from one of
// several read-only backends.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/efebarandurmaz/gptwork/internal/config"
)

// ErrNotFound is returned when no backend holds the requested key.
var ErrNotFound = errors.New("secret not found")

// Provider is the interface for secret backends.
type Provider interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Manager looks a key up in the configured backend, then in the environment.
type Manager struct {
	primary  Provider
	fallback Provider
}

// NewManager creates a secrets manager with the specified configuration.
func NewManager(cfg config.SecretsConfig) (*Manager, error) {
	var primary Provider
	var err error

	switch cfg.Provider {
	case "vault":
		primary, err = NewVaultProvider(&VaultConfig{
			Address:    cfg.Vault.Address,
			Token:      cfg.Vault.Token,
			MountPath:  cfg.Vault.MountPath,
			SecretPath: cfg.Vault.SecretPath,
		})
		if err != nil {
			return nil, fmt.Errorf("create vault provider: %w", err)
		}
	case "file":
		primary, err = NewFileProvider(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}

	m := &Manager{primary: primary}
	// Always use env as fallback
	if primary.Name() != "env" {
		m.fallback = NewEnvProvider(cfg.EnvPrefix)
	}
	return m, nil
}

// Get retrieves a secret, trying primary then fallback.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	val, err := m.primary.Get(ctx, key)
	if err == nil && val != "" {
		return val, nil
	}
	primaryErr := err

	if m.fallback != nil {
		val, err = m.fallback.Get(ctx, key)
		if err == nil && val != "" {
			return val, nil
		}
	}

	if primaryErr != nil && !errors.Is(primaryErr, ErrNotFound) {
		return "", fmt.Errorf("%s: %w", m.primary.Name(), primaryErr)
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Resolve reads cfg.Key once. Callers pass the result into whatever needs it;
// nothing downstream reads the environment for the credential again.
func Resolve(ctx context.Context, cfg config.SecretsConfig) (string, error) {
	m, err := NewManager(cfg)
	if err != nil {
		return "", err
	}
	return m.Get(ctx, cfg.Key)
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = config.EnvPrefix + "_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	// Try with prefix first
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	// Try without prefix
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: env var %s", ErrNotFound, envKey)
}
