package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/client"
	"github.com/efebarandurmaz/gptwork/internal/config"
	"github.com/efebarandurmaz/gptwork/internal/logging"
	"github.com/efebarandurmaz/gptwork/internal/observability"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

var version = "dev"

// app carries what every subcommand needs after flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log)
	for _, w := range cfg.Validate() {
		a.log.Warn(w)
	}
	return nil
}

// openWorkspace loads the persisted fields. The returned func closes the
// run history.
func (a *app) openWorkspace() (*workspace.Workspace, func(), error) {
	audit, err := observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    a.cfg.Client.AuditPath != "",
		OutputPath: a.cfg.Client.AuditPath,
	})
	if err != nil {
		return nil, nil, err
	}

	timeout := a.cfg.Client.Timeout
	ws, err := workspace.New(workspace.Options{
		Store:   workspace.NewFileStore(a.cfg.Client.StatePath),
		APIBase: a.cfg.Client.APIBase,
		NewClient: func(apiBase string) workspace.Completer {
			return client.New(apiBase, client.WithTimeout(timeout))
		},
		Log:   a.log,
		Audit: audit,
	})
	if err != nil {
		audit.Close()
		return nil, nil, err
	}
	return ws, func() { audit.Close() }, nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "gptwork",
		Short:             "Run reusable instruction fields through a credential-holding completion proxy",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (yaml, toml or json)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(
		newServeCmd(a),
		newPingCmd(a),
		newChatCmd(a),
		newRunCmd(a),
		newFieldsCmd(a),
		newModelCmd(a),
		newModelsCmd(a),
		newAPIBaseCmd(a),
		newProvidersCmd(a),
		newUICmd(a),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
