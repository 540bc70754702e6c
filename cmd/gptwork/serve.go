package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/internal/llmutil"
	"github.com/efebarandurmaz/gptwork/internal/observability"
	"github.com/efebarandurmaz/gptwork/internal/proxy"
	"github.com/efebarandurmaz/gptwork/internal/secrets"
	"github.com/efebarandurmaz/gptwork/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the completion proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Server.ListenAddr = listen
			}
			return runServe(cmd, a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Override server.listen_addr")
	return cmd
}

func runServe(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	cfg, log := a.cfg, a.log

	// The credential is read once here and handed to the provider. Request
	// handling never sees it.
	required := llm.NeedsAPIKey(cfg.LLM.Provider)
	var apiKey string
	if required {
		key, err := secrets.Resolve(ctx, cfg.Secrets)
		switch {
		case errors.Is(err, secrets.ErrNotFound):
			log.WithField("key", cfg.Secrets.Key).Error("provider credential not found, completions will fail")
		case err != nil:
			return fmt.Errorf("resolve provider credential: %w", err)
		default:
			apiKey = key
		}
	}

	provider, err := llmutil.NewFactory().Create(llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   apiKey,
		Model:    cfg.LLM.DefaultModel,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "gptwork",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}

	handler := proxy.NewHandler(provider, proxy.OptionsFromConfig(cfg), observability.NewProxyMetrics(), log)

	health := server.NewHealthServer(version)
	health.RegisterCheck("llm", server.LLMHealthChecker(provider.Name(), nil))
	health.RegisterCheck("credential", server.CredentialHealthChecker(required, apiKey != ""))

	srv := server.NewGracefulServer(cfg.Server, handler, health, log)
	srv.Shutdown.Register(server.TracingShutdownHook(tp.Shutdown))

	if err := srv.Start(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"model":    cfg.LLM.DefaultModel,
		"timeout":  cfg.LLM.Timeout,
	}).Info("completion proxy started")

	srv.Wait()
	return nil
}
