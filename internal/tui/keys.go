package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Tab         key.Binding
	Run         key.Binding
	RunAll      key.Binding
	Copy        key.Binding
	Add         key.Binding
	Delete      key.Binding
	Label       key.Binding
	Instruction key.Binding
	Input       key.Binding
	APIBase     key.Binding
	Model       key.Binding
	Save        key.Binding
	Cancel      key.Binding
	Quit        key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Run, km.RunAll, km.Copy, km.Add, km.Delete, km.Instruction, km.Input, km.Model, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Tab},
		{km.Run, km.RunAll, km.Copy, km.Add, km.Delete},
		{km.Label, km.Instruction, km.Input, km.APIBase, km.Model},
		{km.Save, km.Cancel, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev field"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next field"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Run: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r", "run"),
		),
		RunAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "run all"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy output"),
		),
		Add: key.NewBinding(
			key.WithKeys("n", "+"),
			key.WithHelp("n", "add field"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove field"),
		),
		Label: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "edit label"),
		),
		Instruction: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit instruction"),
		),
		Input: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "edit input"),
		),
		APIBase: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "api base"),
		),
		Model: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "next model"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
