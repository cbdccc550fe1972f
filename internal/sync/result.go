package sync

import (
	"fmt"
	"strings"
)

// Action represents the outcome decided for a file during sync.
type Action string

const (
	// ActionSynced indicates the upstream change was applied (content
	// written or the file removed).
	ActionSynced Action = "synced"

	// ActionSkipped indicates the local version was kept.
	ActionSkipped Action = "skipped"

	// ActionConflict indicates the file needs manual or interactive
	// resolution before it can be applied.
	ActionConflict Action = "conflict"

	// ActionError indicates content could not be read or written.
	ActionError Action = "error"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// FileResult records the outcome of processing a single changed file.
// Exactly one result is produced per scoped path.
type FileResult struct {
	// Path is the file path relative to the project root.
	Path string

	// Status is the upstream change that triggered processing.
	Status ChangeStatus

	// Strategy is the merge strategy that applied to the path.
	Strategy Strategy

	// Action is the outcome the engine decided.
	Action Action

	// Detail provides additional context about the outcome.
	Detail string

	// Err contains any error that occurred during processing.
	Err error

	// Diff holds the unified local-vs-upstream diff for conflicts.
	Diff string
}

// Success returns true if the file was processed without error.
func (fr *FileResult) Success() bool {
	return fr.Action != ActionError
}

// Tally holds outcome counts for a run.
type Tally struct {
	Synced    int
	Skipped   int
	Conflicts int
	Errors    int
}

// Result contains the complete outcome of a sync run.
type Result struct {
	// From is the baseline revision the change set was computed against.
	// Empty on a first sync.
	From string

	// To is the target revision.
	To string

	// DryRun indicates if this was a dry run (no changes made).
	DryRun bool

	// Force indicates the run preferred upstream without prompting.
	Force bool

	// Files contains the result for each processed file, in scope order.
	Files []FileResult
}

// Synced returns files whose upstream change was applied.
func (r *Result) Synced() []FileResult {
	return r.filterByAction(ActionSynced)
}

// Skipped returns files whose local version was kept.
func (r *Result) Skipped() []FileResult {
	return r.filterByAction(ActionSkipped)
}

// Conflicts returns files with unresolved conflicts.
func (r *Result) Conflicts() []FileResult {
	return r.filterByAction(ActionConflict)
}

// Errors returns files that failed to process.
func (r *Result) Errors() []FileResult {
	return r.filterByAction(ActionError)
}

// HasConflicts returns true if there are unresolved conflicts.
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts()) > 0
}

// filterByAction returns files with the given action.
func (r *Result) filterByAction(action Action) []FileResult {
	var filtered []FileResult
	for _, fr := range r.Files {
		if fr.Action == action {
			filtered = append(filtered, fr)
		}
	}
	return filtered
}

// Success returns true if all files were processed without error.
func (r *Result) Success() bool {
	return len(r.Errors()) == 0
}

// TotalProcessed returns the total number of files processed.
func (r *Result) TotalProcessed() int {
	return len(r.Files)
}

// ShouldAdvance reports whether the run qualifies to advance the synced
// revision checkpoint: at least one file applied and not a dry run.
func (r *Result) ShouldAdvance() bool {
	return !r.DryRun && len(r.Synced()) > 0
}

// Tally derives the outcome counts from the per-file results.
func (r *Result) Tally() Tally {
	var t Tally
	for _, fr := range r.Files {
		switch fr.Action {
		case ActionSynced:
			t.Synced++
		case ActionSkipped:
			t.Skipped++
		case ActionConflict:
			t.Conflicts++
		case ActionError:
			t.Errors++
		}
	}
	return t
}

// Summary returns a human-readable summary of the sync run.
func (r *Result) Summary() string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Dry run - no changes made\n")
	}

	sb.WriteString(fmt.Sprintf("Synced %s -> %s\n", shortRevision(r.From), shortRevision(r.To)))

	t := r.Tally()
	sb.WriteString(fmt.Sprintf("  Synced:    %d\n", t.Synced))
	sb.WriteString(fmt.Sprintf("  Skipped:   %d\n", t.Skipped))
	sb.WriteString(fmt.Sprintf("  Conflicts: %d\n", t.Conflicts))
	sb.WriteString(fmt.Sprintf("  Errors:    %d\n", t.Errors))

	if r.HasConflicts() {
		sb.WriteString("\nConflicts requiring resolution:\n")
		for _, fr := range r.Conflicts() {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", fr.Path, fr.Detail))
		}
	}

	if !r.Success() {
		sb.WriteString("\nErrors:\n")
		for _, fr := range r.Errors() {
			sb.WriteString(fmt.Sprintf("  - %s: %v\n", fr.Path, fr.Err))
		}
	}

	return sb.String()
}

// shortRevision shortens full commit hashes for display.
func shortRevision(rev string) string {
	if rev == "" {
		return "(initial)"
	}
	if len(rev) >= 40 {
		return rev[:8]
	}
	return rev
}
