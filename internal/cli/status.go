package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/ui"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show pending template changes without applying anything",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-fetch",
				Usage: "Skip fetching the template mirror first",
			},
		},
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := openSession(ctx, cmd, !cmd.Bool("no-fetch"))
	if err != nil {
		return err
	}

	changes, err := sess.pending(ctx)
	if err != nil {
		return err
	}

	baseline := sess.cfg.LastSyncedRevision
	if baseline == "" {
		fmt.Println(ui.Dim("No previous sync, comparing against an empty baseline."))
	}

	if len(changes) == 0 {
		fmt.Println(ui.StatusSuccess("Up to date with " + sess.cfg.Upstream.Branch + "."))
		return nil
	}

	rules := sess.rules()
	detector := sync.NewDetector(sess.store, sess.ws, baseline)

	fmt.Printf("%s\n\n", ui.Header(fmt.Sprintf("%d pending change(s) from %s:", len(changes), sess.cfg.Upstream.Branch)))
	fmt.Println(ui.Header("STATUS     STRATEGY   LOCAL      PATH"))

	for _, change := range changes {
		local := "clean"
		if change.Status != sync.StatusAdded {
			modified, err := detector.Modified(ctx, change.Path)
			switch {
			case err != nil:
				local = "unknown"
			case modified:
				local = "modified"
			}
		} else {
			local = "-"
		}

		fmt.Printf("%s %-10s %-10s %s\n",
			statusLabel(change.Status),
			rules.Resolve(change.Path),
			local,
			change.Path,
		)
	}

	fmt.Printf("\nRun %s to apply, or %s to preview decisions.\n", ui.Bold("agentsync sync"), ui.Bold("agentsync sync --dry-run"))
	return nil
}

// statusLabel colors a change status for display. Padding happens before
// coloring so ANSI codes do not break column alignment.
func statusLabel(status sync.ChangeStatus) string {
	padded := fmt.Sprintf("%-10s", status)
	switch status {
	case sync.StatusAdded:
		return ui.Success(padded)
	case sync.StatusModified:
		return ui.Warning(padded)
	case sync.StatusDeleted:
		return ui.Error(padded)
	default:
		return padded
	}
}
