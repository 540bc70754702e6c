package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/client"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

func newPingCmd(a *app) *cobra.Command {
	var apiBase string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the proxy is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := a.resolveAPIBase(apiBase)
			if err != nil {
				return err
			}
			if err := client.New(base, client.WithTimeout(a.cfg.Client.Timeout)).Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", base)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiBase, "api-base", "", "Proxy base URL (default: workspace api base)")
	return cmd
}

func newChatCmd(a *app) *cobra.Command {
	var instruction, model, apiBase string

	cmd := &cobra.Command{
		Use:   "chat [input...]",
		Short: "Send one instruction and input to the proxy",
		Long:  "Send one instruction and input to the proxy. With no input arguments, or \"-\", the input is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			base, err := a.resolveAPIBase(apiBase)
			if err != nil {
				return err
			}
			c := client.New(base, client.WithTimeout(a.cfg.Client.Timeout))
			answer, err := c.Run(cmd.Context(), api.CompletionRequest{
				Instruction: instruction,
				Input:       input,
				Model:       model,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Instruction (system message)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id (default: proxy default)")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "Proxy base URL (default: workspace api base)")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// resolveAPIBase prefers the flag, then the workspace, then config.
func (a *app) resolveAPIBase(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	ws, closeFn, err := a.openWorkspace()
	if err != nil {
		return "", err
	}
	defer closeFn()
	if base := ws.APIBase(); base != "" {
		return base, nil
	}
	return a.cfg.Client.APIBase, nil
}

func newRunCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "run [field...]",
		Short: "Run fields concurrently and print their outputs",
		Long:  "Run fields concurrently and print their outputs. Fields are named by ID, ID prefix or label.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one field or pass --all")
			}
			ws, closeFn, err := a.openWorkspace()
			if err != nil {
				return err
			}
			defer closeFn()
			return runFields(cmd, ws, args, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Run every field")
	return cmd
}

func runFields(cmd *cobra.Command, ws *workspace.Workspace, refs []string, all bool) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	var targets []workspace.Field
	if all {
		targets = ws.Fields()
	} else {
		for _, ref := range refs {
			f, err := ws.Resolve(ref)
			if err != nil {
				return err
			}
			targets = append(targets, f)
		}
	}

	var dispatched []workspace.Field
	for _, f := range targets {
		if err := ws.Run(cmd.Context(), f.ID); err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", f.Label, err)
			continue
		}
		dispatched = append(dispatched, f)
	}
	if len(dispatched) > 0 {
		fmt.Fprintf(errOut, "Running %d field(s) with %s...\n", len(dispatched), ws.Model())
	}
	ws.Wait()

	failed := 0
	for _, f := range dispatched {
		st := ws.Status(f.ID)
		if st.State == workspace.RunError {
			failed++
			fmt.Fprintf(out, "== %s [error, %s]\n%s\n\n", f.Label, st.Duration.Round(time.Millisecond), st.Err)
			continue
		}
		cur, err := ws.Field(f.ID)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "== %s [%s, %s]\n%s\n\n", f.Label, st.State, st.Duration.Round(time.Millisecond), cur.Output)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d field run(s) failed", failed, len(dispatched))
	}
	if len(dispatched) == 0 {
		return errors.New("no field was run")
	}
	return nil
}
