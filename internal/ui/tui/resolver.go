package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flanny7/agent-template/internal/sync"
)

// Resolver resolves conflicts through the full-screen diff viewer. Each
// call runs one BubbleTea program and blocks until the user picks a
// terminal resolution or quits.
type Resolver struct{}

// NewResolver creates a viewer-backed conflict resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve shows the diff for a conflicted file and returns the chosen
// resolution. Quitting the viewer without a choice skips the file.
func (r *Resolver) Resolve(path, diff string) (sync.Resolution, error) {
	mdl := NewConflictViewModel(path, diff, false)
	finalModel, err := tea.NewProgram(mdl, tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("conflict viewer failed: %w", err)
	}

	m, ok := finalModel.(ConflictViewModel)
	if !ok || m.Choice() == "" {
		return sync.ResolutionSkip, nil
	}
	return m.Choice(), nil
}

// ViewDiff shows a diff read-only, without offering resolutions.
func ViewDiff(path, diff string) error {
	mdl := NewConflictViewModel(path, diff, true)
	if _, err := tea.NewProgram(mdl, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("diff viewer failed: %w", err)
	}
	return nil
}
