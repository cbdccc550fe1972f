package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/ui"
)

// previewLines caps the diff preview shown before the prompt. The full diff
// stays available through the menu.
const previewLines = 12

// PromptResolver resolves conflicts by asking the user on the terminal. It
// blocks until a terminal choice is entered; "show full diff" loops back to
// the menu.
type PromptResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptResolver creates a resolver reading from stdin and writing to
// stdout.
func NewPromptResolver() *PromptResolver {
	return &PromptResolver{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
}

// NewPromptResolverIO creates a resolver over explicit streams, used by
// tests and by callers that redirect the terminal.
func NewPromptResolverIO(in io.Reader, out io.Writer) *PromptResolver {
	return &PromptResolver{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// CanPrompt reports whether stdin is a terminal a user can answer on.
func CanPrompt() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Resolve shows the diff for a diverged file and asks how to reconcile it.
func (pr *PromptResolver) Resolve(path, diff string) (sync.Resolution, error) {
	fmt.Fprintf(pr.out, "\n%s %s\n", ui.Warning("Conflict:"), ui.Bold(path))
	pr.showDiff(diff, previewLines)

	for {
		fmt.Fprintln(pr.out, "\nHow should this file be reconciled?")
		fmt.Fprintln(pr.out, "  1. Take the upstream version")
		fmt.Fprintln(pr.out, "  2. Keep the local version")
		fmt.Fprintln(pr.out, "  3. Skip this file for now")
		fmt.Fprintln(pr.out, "  4. Mark for manual merge")
		fmt.Fprintln(pr.out, "  5. Show the full diff")
		fmt.Fprint(pr.out, "\nEnter choice [1-5]: ")

		response, err := pr.in.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		choice, err := strconv.Atoi(strings.TrimSpace(response))
		if err != nil || choice < 1 || choice > 5 {
			fmt.Fprintln(pr.out, "Invalid choice.")
			continue
		}

		switch choice {
		case 1:
			return sync.ResolutionUpstream, nil
		case 2:
			return sync.ResolutionLocal, nil
		case 3:
			return sync.ResolutionSkip, nil
		case 4:
			return sync.ResolutionManual, nil
		case 5:
			pr.showDiff(diff, 0)
		}
	}
}

// showDiff prints a colorized unified diff. A positive maxLines truncates
// the output.
func (pr *PromptResolver) showDiff(diff string, maxLines int) {
	if diff == "" {
		fmt.Fprintln(pr.out, ui.Dim("  (no content difference)"))
		return
	}

	fmt.Fprintln(pr.out, strings.Repeat("-", 50))
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		if maxLines > 0 && i >= maxLines {
			fmt.Fprintln(pr.out, ui.Dim(fmt.Sprintf("... (%d more lines)", len(lines)-i)))
			break
		}
		fmt.Fprintln(pr.out, colorizeDiffLine(line))
	}
	fmt.Fprintln(pr.out, strings.Repeat("-", 50))
}

// colorizeDiffLine colors one unified-diff line by its prefix.
func colorizeDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return ui.Bold(line)
	case strings.HasPrefix(line, "@@"):
		return ui.Info(line)
	case strings.HasPrefix(line, "+"):
		return ui.Success(line)
	case strings.HasPrefix(line, "-"):
		return ui.Error(line)
	default:
		return line
	}
}
