package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/history"
	"github.com/flanny7/agent-template/internal/ui"
	"github.com/flanny7/agent-template/internal/util"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Value:   10,
				Usage:   "Number of runs to show",
			},
			&cli.BoolFlag{
				Name:  "files",
				Usage: "List per-file outcomes for each run",
			},
		},
		Action: runHistory,
	}
}

func runHistory(_ context.Context, cmd *cli.Command) error {
	project, err := projectDir(cmd)
	if err != nil {
		return err
	}

	path := util.HistoryPath(project)
	if _, err := os.Stat(path); err != nil {
		fmt.Println(ui.Dim("No sync runs recorded yet."))
		return nil
	}

	journal, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sync journal: %w", err)
	}
	defer func() { _ = journal.Close() }()

	entries, err := journal.Recent(int(cmd.Int("count")))
	if err != nil {
		return fmt.Errorf("failed to read sync journal: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println(ui.Dim("No sync runs recorded yet."))
		return nil
	}

	for _, entry := range entries {
		printEntry(entry, cmd.Bool("files"))
	}
	return nil
}

// printEntry renders one journal entry, newest runs first.
func printEntry(entry history.Entry, withFiles bool) {
	mode := ""
	switch {
	case entry.DryRun:
		mode = ui.Dim(" [dry-run]")
	case entry.Forced:
		mode = ui.Warning(" [forced]")
	}

	fmt.Printf("%s %s  %s -> %s%s\n",
		ui.Header(fmt.Sprintf("#%d", entry.Sequence)),
		entry.StartedAt.Format("2006-01-02 15:04:05"),
		shortRev(entry.From),
		shortRev(entry.To),
		mode,
	)
	fmt.Printf("   %s synced, %s skipped, %s conflicts, %s errors\n",
		ui.Success(fmt.Sprint(entry.Synced)),
		ui.Dim(fmt.Sprint(entry.Skipped)),
		ui.Warning(fmt.Sprint(entry.Conflicts)),
		ui.Error(fmt.Sprint(entry.Errors)),
	)

	if withFiles {
		for _, file := range entry.Files {
			fmt.Printf("   %-9s %-9s %s\n", file.Action, file.Status, file.Path)
		}
	}
}

// shortRev shortens commit hashes for the run listing.
func shortRev(rev string) string {
	if rev == "" {
		return "(initial)"
	}
	if len(rev) >= 40 {
		return rev[:8]
	}
	return rev
}
