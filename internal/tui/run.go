// Package tui is the interactive terminal board for a workspace.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

// Run shows the board until the user quits. Runs still in flight finish
// before it returns.
func Run(ctx context.Context, ws *workspace.Workspace, models []string) error {
	p := tea.NewProgram(NewBoardModel(ctx, ws, models), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	ws.Wait()
	return nil
}
