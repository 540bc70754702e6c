package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/tui"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive field board",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The board owns the terminal. Run history still goes to client.audit_path.
			a.log.SetOutput(io.Discard)
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				return tui.Run(cmd.Context(), ws, a.cfg.LLM.Models)
			})
		},
	}
}
