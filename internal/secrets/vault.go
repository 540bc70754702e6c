package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultVaultMount   = "secret"
	defaultVaultPath    = "gptwork"
	defaultVaultTimeout = 10 * time.Second
)

// VaultConfig configures the HashiCorp Vault provider.
type VaultConfig struct {
	Address string
	Token   string
	// MountPath is the KV v2 engine mount, "secret" when empty.
	MountPath string
	// SecretPath holds the proxy credentials, "gptwork" when empty.
	SecretPath string
	Timeout    time.Duration
}

// VaultProvider reads keys from one KV v2 secret. Each Get is a single
// request; the caller resolves the credential once at startup.
type VaultProvider struct {
	url    string
	path   string
	token  string
	client *http.Client
}

// kvResponse is the subset of a KV v2 read (and error) body we use.
type kvResponse struct {
	Data struct {
		Data map[string]any `json:"data"`
	} `json:"data"`
	Errors []string `json:"errors"`
}

func NewVaultProvider(cfg *VaultConfig) (*VaultProvider, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("vault address required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token required")
	}
	mount := strings.Trim(cfg.MountPath, "/")
	if mount == "" {
		mount = defaultVaultMount
	}
	path := strings.Trim(cfg.SecretPath, "/")
	if path == "" {
		path = defaultVaultPath
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultVaultTimeout
	}

	return &VaultProvider{
		url:    fmt.Sprintf("%s/v1/%s/data/%s", strings.TrimSuffix(cfg.Address, "/"), mount, path),
		path:   path,
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (p *VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) Get(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vault request: %w", err)
	}
	defer resp.Body.Close()

	var body kvResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: vault path %s", ErrNotFound, p.path)
	case resp.StatusCode != http.StatusOK:
		if len(body.Errors) > 0 {
			return "", fmt.Errorf("vault status %d: %s", resp.StatusCode, strings.Join(body.Errors, "; "))
		}
		return "", fmt.Errorf("vault status %d", resp.StatusCode)
	case decodeErr != nil:
		return "", fmt.Errorf("decode vault response: %w", decodeErr)
	}

	switch v := body.Data.Data[key].(type) {
	case nil:
		return "", fmt.Errorf("%w: vault key %s", ErrNotFound, key)
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}
