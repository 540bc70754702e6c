package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/internal/llmutil"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

func newModelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "model [name]",
		Short: "Show or select the model used by field runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				if len(args) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ws.Model())
					return nil
				}
				if !slices.Contains(a.cfg.LLM.Models, args[0]) {
					a.log.WithField("model", args[0]).Warn("model is not in llm.models, the proxy may reject it")
				}
				return ws.SetModel(args[0])
			})
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				current := ws.Model()
				for _, m := range a.cfg.LLM.Models {
					mark := " "
					if m == current {
						mark = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, m)
				}
				return nil
			})
		},
	}
}

func newAPIBaseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "api-base [url]",
		Short: "Show or set the proxy base URL used by field runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				if len(args) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ws.APIBase())
					return nil
				}
				return ws.SetAPIBase(args[0])
			})
		},
	}
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available LLM providers:")
			fmt.Fprintln(out)
			for _, name := range llmutil.NewFactory().Names() {
				url := llm.KnownProviders[name]
				switch name {
				case "echo":
					url = "(offline, answers with the input text)"
				case "custom":
					url = "(set llm.base_url to any OpenAI-compatible endpoint)"
				}
				fmt.Fprintf(out, "  %-14s %s\n", name, url)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Configure in gptwork.yaml or via environment:")
			fmt.Fprintln(out, "  GPTWORK_LLM_PROVIDER=groq")
			fmt.Fprintln(out, "  GPTWORK_OPENAI_API_KEY=gsk_...")
			fmt.Fprintln(out, "  GPTWORK_LLM_DEFAULT_MODEL=llama-3.3-70b-versatile")
		},
	}
}
