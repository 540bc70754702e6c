package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/gptwork/pkg/api"
)

// EnvPrefix is the prefix for environment overrides, e.g. GPTWORK_LLM_PROVIDER.
const EnvPrefix = "GPTWORK"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Client  ClientConfig  `mapstructure:"client"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
}

// LLMConfig selects the upstream chat-completion provider. The credential is
// deliberately absent: it is resolved through the secrets section.
type LLMConfig struct {
	Provider           string        `mapstructure:"provider"`
	DefaultModel       string        `mapstructure:"default_model"`
	DefaultInstruction string        `mapstructure:"default_instruction"`
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Temperature        float64       `mapstructure:"temperature"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	// Models is the catalog offered to clients; requests may still name others.
	Models []string `mapstructure:"models"`
}

type SecretsConfig struct {
	Provider  string      `mapstructure:"provider"` // env, file, vault
	EnvPrefix string      `mapstructure:"env_prefix"`
	Key       string      `mapstructure:"key"`
	FilePath  string      `mapstructure:"file_path"`
	Vault     VaultConfig `mapstructure:"vault"`
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
}

type ClientConfig struct {
	APIBase   string        `mapstructure:"api_base"`
	Timeout   time.Duration `mapstructure:"timeout"`
	StatePath string        `mapstructure:"state_path"`
	// AuditPath enables the JSON-lines run history when set.
	AuditPath string `mapstructure:"audit_path"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file or env override exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    75 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigin:      "*",
		},
		LLM: LLMConfig{
			Provider:           "openai",
			DefaultModel:       api.DefaultModel,
			DefaultInstruction: api.DefaultInstruction,
			Timeout:            60 * time.Second,
			Models:             []string{"gpt-4o", "gpt-4.1-mini", "gpt-4o-mini"},
		},
		Secrets: SecretsConfig{
			Provider:  "env",
			EnvPrefix: EnvPrefix + "_",
			Key:       "openai_api_key",
			Vault: VaultConfig{
				MountPath:  "secret",
				SecretPath: "gptwork",
			},
		},
		Client: ClientConfig{
			APIBase:   "http://localhost:8080",
			Timeout:   90 * time.Second,
			StatePath: defaultStatePath(),
		},
		Tracing: TracingConfig{
			SampleRate:  1.0,
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gptwork/state.json"
	}
	return filepath.Join(home, ".gptwork", "state.json")
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Secrets.Provider {
	case "", "env", "file", "vault":
	default:
		warnings = append(warnings, fmt.Sprintf("secrets provider '%s' is unknown, expected env, file or vault", c.Secrets.Provider))
	}
	if c.Secrets.Provider == "file" && c.Secrets.FilePath == "" {
		warnings = append(warnings, "secrets provider 'file' is configured but secrets.file_path is empty")
	}
	if c.Secrets.Provider == "vault" && c.Secrets.Vault.Address == "" {
		warnings = append(warnings, "secrets provider 'vault' is configured but secrets.vault.address is empty")
	}

	// Check temperature range [0, 2.0]
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}

	if c.LLM.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_tokens %d is negative", c.LLM.MaxTokens))
	}

	// A write timeout below the provider timeout cuts slow answers off mid-flight.
	if c.Server.WriteTimeout > 0 && c.LLM.Timeout > 0 && c.Server.WriteTimeout <= c.LLM.Timeout {
		warnings = append(warnings, fmt.Sprintf("server write_timeout %s does not exceed llm timeout %s", c.Server.WriteTimeout, c.LLM.Timeout))
	}
	if c.Client.Timeout > 0 && c.LLM.Timeout > 0 && c.Client.Timeout <= c.LLM.Timeout {
		warnings = append(warnings, fmt.Sprintf("client timeout %s does not exceed llm timeout %s", c.Client.Timeout, c.LLM.Timeout))
	}

	if c.Server.MaxBodyBytes < 0 {
		warnings = append(warnings, fmt.Sprintf("server max_body_bytes %d is negative", c.Server.MaxBodyBytes))
	}

	return warnings
}

// Load reads configuration from an optional file and the environment.
// An empty path uses defaults plus GPTWORK_* overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so env overrides reach Unmarshal even
// without a config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.default_model", d.LLM.DefaultModel)
	v.SetDefault("llm.default_instruction", d.LLM.DefaultInstruction)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.models", d.LLM.Models)

	v.SetDefault("secrets.provider", d.Secrets.Provider)
	v.SetDefault("secrets.env_prefix", d.Secrets.EnvPrefix)
	v.SetDefault("secrets.key", d.Secrets.Key)
	v.SetDefault("secrets.file_path", d.Secrets.FilePath)
	v.SetDefault("secrets.vault.address", d.Secrets.Vault.Address)
	v.SetDefault("secrets.vault.token", d.Secrets.Vault.Token)
	v.SetDefault("secrets.vault.mount_path", d.Secrets.Vault.MountPath)
	v.SetDefault("secrets.vault.secret_path", d.Secrets.Vault.SecretPath)

	v.SetDefault("client.api_base", d.Client.APIBase)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.state_path", d.Client.StatePath)
	v.SetDefault("client.audit_path", d.Client.AuditPath)

	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.environment", d.Tracing.Environment)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
