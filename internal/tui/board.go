package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/gptwork/internal/client"
	"github.com/efebarandurmaz/gptwork/internal/workspace"
)

type Pane int

const (
	PaneFields Pane = iota
	PaneOutput
)

type editTarget int

const (
	editNone editTarget = iota
	editLabel
	editInstruction
	editInput
	editAPIBase
)

func (t editTarget) String() string {
	switch t {
	case editLabel:
		return "Label"
	case editInstruction:
		return "Instruction"
	case editInput:
		return "Input"
	case editAPIBase:
		return "API base"
	default:
		return ""
	}
}

const (
	// A notice stays on screen this long, like a snackbar.
	noticeTTL       = 2200 * time.Millisecond
	refreshInterval = 250 * time.Millisecond
	listWidth       = 30
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// BoardModel shows every field of a workspace and runs them. Runs execute in
// the workspace's own goroutines; the board only polls their status.
type BoardModel struct {
	ctx    context.Context
	ws     *workspace.Workspace
	models []string
	styles *Styles

	cursor     int
	activePane Pane
	width      int
	height     int
	quitting   bool

	editing editTarget
	editID  string
	editor  textarea.Model

	viewport viewport.Model
	help     help.Model
	keys     keyMap

	// flash holds errors the workspace does not report as notices.
	flash string
	now   func() time.Time
	// copyText writes to the system clipboard; tests replace it.
	copyText func(string) error
}

func NewBoardModel(ctx context.Context, ws *workspace.Workspace, models []string) BoardModel {
	ed := textarea.New()
	ed.CharLimit = 0
	ed.ShowLineNumbers = false
	ed.Placeholder = "Type here..."

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle()

	m := BoardModel{
		ctx:        ctx,
		ws:         ws,
		models:     models,
		styles:     DefaultStyles(),
		activePane: PaneFields,
		width:      100,
		height:     30,
		editor:     ed,
		viewport:   vp,
		help:       help.New(),
		keys:       newKeyMap(),
		now:        time.Now,
		copyText:   clipboard.WriteAll,
	}
	m.resize(m.width, m.height)
	return m
}

func (m BoardModel) Init() tea.Cmd {
	return tick()
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.syncOutput()
		return m, nil

	case tickMsg:
		m.syncOutput()
		return m, tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.editing != editNone {
			return m.updateEditor(msg)
		}
		return m.updateBoard(msg)
	}

	return m, nil
}

func (m BoardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fields := m.ws.Fields()
	current, hasCurrent := m.selected(fields)
	m.flash = ""

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(fields)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Tab):
		if m.activePane == PaneFields {
			m.activePane = PaneOutput
		} else {
			m.activePane = PaneFields
		}

	case key.Matches(msg, m.keys.Run):
		if hasCurrent {
			m.setFlash(m.ws.Run(m.ctx, current.ID))
		}

	case key.Matches(msg, m.keys.RunAll):
		for _, err := range m.ws.RunAll(m.ctx) {
			m.setFlash(err)
		}

	case key.Matches(msg, m.keys.Copy):
		if hasCurrent {
			// The workspace raises the notice for both outcomes.
			_ = m.ws.CopyOutput(current.ID, m.copyText)
		}

	case key.Matches(msg, m.keys.Add):
		if _, err := m.ws.AddField(); err != nil {
			m.setFlash(err)
		}
		m.cursor = len(fields)

	case key.Matches(msg, m.keys.Delete):
		if hasCurrent {
			m.setFlash(m.ws.RemoveField(current.ID))
			if m.cursor >= len(fields)-1 && m.cursor > 0 {
				m.cursor--
			}
		}

	case key.Matches(msg, m.keys.Label):
		if hasCurrent {
			cmd = m.startEdit(editLabel, current.ID, current.Label)
		}

	case key.Matches(msg, m.keys.Instruction):
		if hasCurrent {
			cmd = m.startEdit(editInstruction, current.ID, current.Instruction)
		}

	case key.Matches(msg, m.keys.Input):
		if hasCurrent {
			cmd = m.startEdit(editInput, current.ID, current.Input)
		}

	case key.Matches(msg, m.keys.APIBase):
		cmd = m.startEdit(editAPIBase, "", m.ws.APIBase())

	case key.Matches(msg, m.keys.Model):
		m.setFlash(m.ws.SetModel(nextModel(m.models, m.ws.Model())))

	default:
		if m.activePane == PaneOutput {
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	m.syncOutput()
	return m, cmd
}

func (m BoardModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		m.commitEdit()
		m.syncOutput()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.stopEdit()
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *BoardModel) startEdit(target editTarget, id, value string) tea.Cmd {
	m.editing = target
	m.editID = id
	m.editor.SetValue(value)
	return m.editor.Focus()
}

func (m *BoardModel) stopEdit() {
	m.editing = editNone
	m.editID = ""
	m.editor.Blur()
	m.editor.Reset()
}

func (m *BoardModel) commitEdit() {
	value := m.editor.Value()

	var err error
	switch m.editing {
	case editLabel:
		err = m.ws.UpdateField(m.editID, func(f *workspace.Field) {
			f.Label = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
		})
	case editInstruction:
		err = m.ws.UpdateField(m.editID, func(f *workspace.Field) { f.Instruction = value })
	case editInput:
		err = m.ws.UpdateField(m.editID, func(f *workspace.Field) { f.Input = value })
	case editAPIBase:
		err = m.ws.SetAPIBase(value)
	}

	m.stopEdit()
	m.setFlash(err)
}

// setFlash shows err unless the workspace already raised a notice for it.
func (m *BoardModel) setFlash(err error) {
	if err == nil {
		return
	}
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		return
	}
	m.flash = err.Error()
}

func (m *BoardModel) resize(width, height int) {
	m.width = width
	m.height = height

	detail := m.detailWidth()
	m.editor.SetWidth(detail - 4)
	m.editor.SetHeight(max(height-14, 3))
	m.viewport.Width = detail - 4
	m.viewport.Height = max(height/2-6, 3)
}

func (m BoardModel) detailWidth() int {
	return max(m.width-listWidth-6, 20)
}

func (m BoardModel) selected(fields []workspace.Field) (workspace.Field, bool) {
	if len(fields) == 0 {
		return workspace.Field{}, false
	}
	i := min(max(m.cursor, 0), len(fields)-1)
	return fields[i], true
}

// syncOutput loads the selected field's output into the viewport.
func (m *BoardModel) syncOutput() {
	fields := m.ws.Fields()
	if len(fields) == 0 {
		m.cursor = 0
		m.viewport.SetContent("")
		return
	}
	m.cursor = min(max(m.cursor, 0), len(fields)-1)
	out := fields[m.cursor].Output
	if out == "" {
		out = m.styles.Muted.Render("Result will appear here...")
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(out))
}

func nextModel(catalog []string, current string) string {
	if len(catalog) == 0 {
		return current
	}
	for i, m := range catalog {
		if m == current {
			return catalog[(i+1)%len(catalog)]
		}
	}
	return catalog[0]
}
