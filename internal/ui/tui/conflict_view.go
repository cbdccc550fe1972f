package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/flanny7/agent-template/internal/sync"
)

// conflictKeyMap defines the key bindings for the conflict diff viewer.
type conflictKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Upstream key.Binding
	Local    key.Binding
	Skip     key.Binding
	Manual   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Upstream: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "take upstream"),
		),
		Local: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "keep local"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual merge"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Styles for the conflict diff viewer.
var conflictStyles = struct {
	Title   lipgloss.Style
	Help    lipgloss.Style
	Status  lipgloss.Style
	Header  lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
	Context lipgloss.Style
	Hunk    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
	Added:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Removed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Context: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	Hunk:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

var titleCaser = cases.Title(language.English)

// ConflictViewModel is the BubbleTea model for reviewing one conflicted
// file's diff and choosing how to resolve it.
type ConflictViewModel struct {
	viewport viewport.Model
	path     string
	diff     string
	keys     conflictKeyMap
	choice   sync.Resolution
	viewOnly bool
	showHelp bool
	width    int
	height   int
	quitting bool
	ready    bool
}

// NewConflictViewModel creates a viewer for the given path and unified
// diff. With viewOnly the resolution keys are disabled and q just closes.
func NewConflictViewModel(path, diff string, viewOnly bool) ConflictViewModel {
	return ConflictViewModel{
		path:     path,
		diff:     diff,
		keys:     defaultConflictKeyMap(),
		viewOnly: viewOnly,
	}
}

// Init implements tea.Model.
func (m ConflictViewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2 // Title + spacing
		footerHeight := 3 // Status + help
		viewportHeight := max(msg.Height-headerHeight-footerHeight, 5)

		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.renderDiff())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Upstream):
			return m.choose(sync.ResolutionUpstream)

		case key.Matches(msg, m.keys.Local):
			return m.choose(sync.ResolutionLocal)

		case key.Matches(msg, m.keys.Skip):
			return m.choose(sync.ResolutionSkip)

		case key.Matches(msg, m.keys.Manual):
			return m.choose(sync.ResolutionManual)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// choose records a terminal resolution and quits, unless viewing only.
func (m ConflictViewModel) choose(r sync.Resolution) (tea.Model, tea.Cmd) {
	if m.viewOnly {
		return m, nil
	}
	m.choice = r
	m.quitting = true
	return m, tea.Quit
}

// renderDiff colorizes the unified diff for the viewport.
func (m ConflictViewModel) renderDiff() string {
	if m.diff == "" {
		return conflictStyles.Context.Render("(no content difference)")
	}

	lines := strings.Split(strings.TrimSuffix(m.diff, "\n"), "\n")
	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			rendered = append(rendered, conflictStyles.Header.Render(line))
		case strings.HasPrefix(line, "@@"):
			rendered = append(rendered, conflictStyles.Hunk.Render(line))
		case strings.HasPrefix(line, "+"):
			rendered = append(rendered, conflictStyles.Added.Render(line))
		case strings.HasPrefix(line, "-"):
			rendered = append(rendered, conflictStyles.Removed.Render(line))
		default:
			rendered = append(rendered, conflictStyles.Context.Render(line))
		}
	}
	return strings.Join(rendered, "\n")
}

// View implements tea.Model.
func (m ConflictViewModel) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	label := "Conflict"
	if m.viewOnly {
		label = "Diff"
	}
	title := conflictStyles.Title.Render(fmt.Sprintf("%s: %s", titleCaser.String(label), truncateText(m.path, max(m.width-12, 10))))
	b.WriteString(title)
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	b.WriteString(conflictStyles.Status.Render(fmt.Sprintf("Scroll: %d%%", scrollPercent)))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}

	return b.String()
}

func (m ConflictViewModel) renderShortHelp() string {
	keys := []string{"↑/↓ scroll"}
	if !m.viewOnly {
		keys = append(keys, "u upstream", "l local", "s skip", "m manual")
	}
	keys = append(keys, "? help", "q quit")
	return conflictStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ConflictViewModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Scroll up
  ↓/j      Scroll down
  PgUp     Page up
  PgDown   Page down`
	if !m.viewOnly {
		help += `

Resolution:
  u        Take the upstream version
  l        Keep the local version
  s        Skip this file for now
  m        Mark for manual merge`
	}
	help += `

General:
  ?        Toggle full help
  q        Quit without choosing`
	return conflictStyles.Help.Render(help)
}

// Choice returns the resolution the user picked, or empty when none was
// chosen.
func (m ConflictViewModel) Choice() sync.Resolution {
	return m.choice
}
