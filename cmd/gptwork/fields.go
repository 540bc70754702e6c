package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

func newFieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage the saved instruction fields",
	}
	cmd.AddCommand(
		newFieldsListCmd(a),
		newFieldsShowCmd(a),
		newFieldsAddCmd(a),
		newFieldsRemoveCmd(a),
		newFieldsSetCmd(a),
		newFieldsExportCmd(a),
		newFieldsImportCmd(a),
	)
	return cmd
}

// withWorkspace opens the workspace around fn.
func withWorkspace(a *app, fn func(ws *workspace.Workspace) error) error {
	ws, closeFn, err := a.openWorkspace()
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ws)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newFieldsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tLABEL\tINSTRUCTION\tINPUT\tTOKENS\tOUTPUT")
				for _, f := range ws.Fields() {
					tokens := llm.NewExchange(f.Instruction, f.Input).CountTokens()
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
						shortID(f.ID), f.Label, preview(f.Instruction, 40), preview(f.Input, 24), tokens, preview(f.Output, 24))
				}
				return tw.Flush()
			})
		},
	}
}

func newFieldsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <field>",
		Short: "Print a field in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				f, err := ws.Resolve(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\nLabel:       %s\n", f.ID, f.Label)
				fmt.Fprintf(out, "Tokens:      ~%d prompt\n", llm.NewExchange(f.Instruction, f.Input).CountTokens())
				fmt.Fprintf(out, "Instruction:\n%s\n\nInput:\n%s\n\nOutput:\n%s\n", f.Instruction, f.Input, f.Output)
				return nil
			})
		},
	}
}

type fieldFlags struct {
	label, instruction, input string
}

func (ff *fieldFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.label, "label", "", "Field label")
	cmd.Flags().StringVarP(&ff.instruction, "instruction", "i", "", "Instruction text (\"-\" reads stdin)")
	cmd.Flags().StringVar(&ff.input, "input", "", "Input text (\"-\" reads stdin)")
}

// apply copies only the flags that were given on the command line.
func (ff *fieldFlags) apply(cmd *cobra.Command, f *workspace.Field) error {
	stdin := cmd.InOrStdin()
	if cmd.Flags().Changed("label") {
		f.Label = ff.label
	}
	if cmd.Flags().Changed("instruction") {
		v, err := readValue(stdin, ff.instruction)
		if err != nil {
			return err
		}
		f.Instruction = v
	}
	if cmd.Flags().Changed("input") {
		v, err := readValue(stdin, ff.input)
		if err != nil {
			return err
		}
		f.Input = v
	}
	return nil
}

func readValue(stdin io.Reader, v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func newFieldsAddCmd(a *app) *cobra.Command {
	var ff fieldFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a new field",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				var given workspace.Field
				if err := ff.apply(cmd, &given); err != nil {
					return err
				}
				f, err := ws.AddField()
				if err != nil {
					return err
				}
				if err := ws.UpdateField(f.ID, func(cur *workspace.Field) {
					if given.Label != "" {
						cur.Label = given.Label
					}
					cur.Instruction, cur.Input = given.Instruction, given.Input
				}); err != nil {
					return err
				}
				f, _ = ws.Field(f.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Field added: %s (%s)\n", f.Label, f.ID)
				return nil
			})
		},
	}
	ff.bind(cmd)
	return cmd
}

func newFieldsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <field>",
		Aliases: []string{"remove"},
		Short:   "Delete a field",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				f, err := ws.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := ws.RemoveField(f.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Field removed: %s\n", f.Label)
				return nil
			})
		},
	}
}

func newFieldsSetCmd(a *app) *cobra.Command {
	var ff fieldFlags

	cmd := &cobra.Command{
		Use:   "set <field>",
		Short: "Change a field's label, instruction or input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				f, err := ws.Resolve(args[0])
				if err != nil {
					return err
				}
				// Read stdin before taking the workspace lock.
				next := f
				if err := ff.apply(cmd, &next); err != nil {
					return err
				}
				return ws.UpdateField(f.ID, func(cur *workspace.Field) {
					cur.Label, cur.Instruction, cur.Input = next.Label, next.Instruction, next.Input
				})
			})
		},
	}
	ff.bind(cmd)
	return cmd
}

func newFieldsExportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the fields as a json, yaml or toml preset file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(a, func(ws *workspace.Workspace) error {
				if len(args) == 0 {
					f, err := workspace.ParseFormat(format)
					if err != nil {
						return err
					}
					return ws.Export(cmd.OutOrStdout(), f)
				}

				f, err := formatFor(args[0], format, cmd.Flags().Changed("format"))
				if err != nil {
					return err
				}
				out, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := ws.Export(out, f); err != nil {
					out.Close()
					return err
				}
				return out.Close()
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "json, yaml or toml (default from file extension)")
	return cmd
}

func newFieldsImportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the fields with those from a preset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(args[0], format, cmd.Flags().Changed("format"))
			if err != nil {
				return err
			}
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			return withWorkspace(a, func(ws *workspace.Workspace) error {
				n, err := ws.Import(in, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d fields\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, yaml or toml (default from file extension)")
	return cmd
}

func formatFor(path, flag string, explicit bool) (workspace.Format, error) {
	if explicit {
		return workspace.ParseFormat(flag)
	}
	return workspace.FormatFromPath(path)
}
