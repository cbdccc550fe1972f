package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/ui"
	"github.com/flanny7/agent-template/internal/ui/tui"
)

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show the diff between local files and the template",
		UsageText: "agentsync diff [options] [path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Browse each diff in the full-screen viewer",
			},
			&cli.BoolFlag{
				Name:  "no-fetch",
				Usage: "Skip fetching the template mirror first",
			},
		},
		Action: runDiff,
	}
}

func runDiff(ctx context.Context, cmd *cli.Command) error {
	sess, err := openSession(ctx, cmd, !cmd.Bool("no-fetch"))
	if err != nil {
		return err
	}

	changes, err := sess.pending(ctx)
	if err != nil {
		return err
	}

	if path := cmd.Args().First(); path != "" {
		changes = filterToPath(changes, path)
		if len(changes) == 0 {
			return fmt.Errorf("no pending change for %q", path)
		}
	}

	if len(changes) == 0 {
		fmt.Println(ui.StatusSuccess("No pending changes."))
		return nil
	}

	shown := 0
	for _, change := range changes {
		diff, err := sess.pendingDiff(ctx, change)
		if err != nil {
			fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", change.Path, err)))
			continue
		}
		if diff == "" {
			continue
		}

		if cmd.Bool("tui") {
			if err := tui.ViewDiff(change.Path, diff); err != nil {
				return err
			}
		} else {
			for _, line := range splitDiffLines(diff) {
				fmt.Println(colorizeDiffLine(line))
			}
			fmt.Println()
		}
		shown++
	}

	if shown == 0 {
		fmt.Println(ui.Dim("Pending changes carry no content difference."))
	}
	return nil
}

// pendingDiff builds the local-vs-upstream unified diff for one change.
// Deletions diff against empty upstream content.
func (s *session) pendingDiff(ctx context.Context, change sync.Change) (string, error) {
	var local []byte
	data, err := s.ws.Read(change.Path)
	switch {
	case err == nil:
		local = data
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	var remote []byte
	if change.Status != sync.StatusDeleted {
		remote, err = s.store.Blob(ctx, s.target, change.Path)
		if err != nil && !errors.Is(err, sync.ErrBlobNotFound) {
			return "", err
		}
	}

	return sync.Unified(change.Path, string(local), string(remote)), nil
}

// splitDiffLines splits a unified diff into display lines.
func splitDiffLines(diff string) []string {
	return strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
}

// filterToPath narrows a change set to one exact path.
func filterToPath(changes []sync.Change, path string) []sync.Change {
	for _, change := range changes {
		if change.Path == path {
			return []sync.Change{change}
		}
	}
	return nil
}
