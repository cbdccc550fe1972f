package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/history"
	"github.com/flanny7/agent-template/internal/logging"
	"github.com/flanny7/agent-template/internal/progress"
	"github.com/flanny7/agent-template/internal/stash"
	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/ui"
	"github.com/flanny7/agent-template/internal/ui/tui"
	"github.com/flanny7/agent-template/internal/util"
	"github.com/flanny7/agent-template/internal/workspace"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Apply pending template changes to the working tree",
		Description: `Synchronize the project from its template repository.

   Changes between the last synced revision and the template branch are
   scoped by the configured include/exclude patterns. Files that diverged
   locally are reconciled per their merge strategy; prompt-strategy files
   are resolved interactively.

   Examples:
     agentsync sync
     agentsync sync --dry-run
     agentsync sync --force --no-stash`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Preview decisions without modifying files or prompting",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Prefer upstream on divergence and never prompt",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Resolve conflicts in the full-screen diff viewer",
			},
			&cli.BoolFlag{
				Name:  "no-fetch",
				Usage: "Skip fetching the template mirror before syncing",
			},
			&cli.BoolFlag{
				Name:  "no-stash",
				Usage: "Skip stashing affected files before syncing",
			},
		},
		Action: runSync,
	}
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	sess, err := openSession(ctx, cmd, !cmd.Bool("no-fetch"))
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	force := cmd.Bool("force")

	changes, err := sess.pending(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Println(ui.StatusSuccess("Already up to date."))
		return nil
	}

	guard, err := stashChanges(sess, changes, dryRun, cmd.Bool("no-stash"))
	if err != nil {
		return err
	}

	opts := sync.Options{
		DryRun:  dryRun,
		Force:   force,
		Verbose: cmd.Bool("verbose"),
		Include: sess.cfg.Sync.Include,
		Exclude: sess.cfg.Sync.Exclude,
		Rules:   sess.rules(),
	}

	interactive := !dryRun && !force
	if interactive {
		switch {
		case cmd.Bool("tui"):
			opts.Resolver = tui.NewResolver()
		case CanPrompt():
			opts.Resolver = NewPromptResolver()
		default:
			logging.Warn("stdin is not a terminal, conflicts stay unresolved")
		}
	}

	var bar *progress.Bar
	if opts.Resolver == nil {
		bar = progress.Simple(int64(len(changes)), "Syncing")
		opts.Observe = func(sync.FileResult) { _ = bar.Add(1) }
	}

	started := time.Now()
	engine := sync.New(sess.store, sess.ws)
	result, runErr := engine.Run(ctx, sess.cfg.LastSyncedRevision, sess.target, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	if runErr != nil {
		guard.restore()
		return runErr
	}
	guard.retain(sess.cfg.Stash.MaxStashes)

	printResult(result, cmd.Bool("verbose"))
	recordRun(sess, result, started)

	if result.ShouldAdvance() {
		if err := sess.advanceCheckpoint(sess.target); err != nil {
			return fmt.Errorf("sync applied but checkpoint not saved: %w", err)
		}
		runPostSync(ctx, sess.project, sess.cfg.Hooks.PostSync)
	}

	return nil
}

// stashGuard scopes the pre-sync snapshot: restore on a failed run, retain
// with pruning on success.
type stashGuard struct {
	store *stash.Store
	id    string
}

// stashChanges snapshots every file the run may touch. Disabled stashing or
// a dry run yields a no-op guard.
func stashChanges(sess *session, changes []sync.Change, dryRun, skip bool) (*stashGuard, error) {
	if dryRun || skip || !sess.cfg.Stash.Enabled {
		return &stashGuard{}, nil
	}

	paths := make([]string, 0, len(changes))
	for _, change := range changes {
		paths = append(paths, change.Path)
	}

	store := stash.New(sess.ws, workspace.New(util.StashPath(sess.project)))
	st, err := store.Create(paths, sess.target)
	if err != nil {
		return nil, fmt.Errorf("failed to stash affected files: %w", err)
	}
	if st == nil {
		return &stashGuard{}, nil
	}

	logging.Debug("stashed affected files",
		logging.Count(len(paths)),
		logging.Operation("stash"),
	)
	return &stashGuard{store: store, id: st.ID}, nil
}

// restore puts the stashed files back after an aborted run.
func (g *stashGuard) restore() {
	if g.store == nil {
		return
	}
	if err := g.store.Restore(g.id); err != nil {
		logging.Error("failed to restore stash", logging.Err(err))
		fmt.Println(ui.StatusError(fmt.Sprintf("Stash %s could not be restored: %v", g.id, err)))
		return
	}
	fmt.Println(ui.StatusWarning(fmt.Sprintf("Sync aborted, restored pre-sync state from stash %s", g.id)))
}

// retain keeps the stash as a safety net and prunes old ones down to the
// configured retention.
func (g *stashGuard) retain(maxStashes int) {
	if g.store == nil {
		return
	}
	dropped, err := g.store.Prune(maxStashes)
	if err != nil {
		logging.Warn("failed to prune stashes", logging.Err(err))
		return
	}
	if len(dropped) > 0 {
		logging.Debug("pruned old stashes", logging.Count(len(dropped)))
	}
}

// printResult prints one line per processed file and the run summary.
func printResult(result *sync.Result, verbose bool) {
	for _, fr := range result.Files {
		line := fmt.Sprintf("%s %s", actionLabel(fr.Action), fr.Path)
		if verbose || fr.Action == sync.ActionConflict || fr.Action == sync.ActionError {
			line += ui.Dim(" (" + fr.Detail + ")")
		}
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Print(result.Summary())
}

// actionLabel renders a colored status symbol for an action.
func actionLabel(action sync.Action) string {
	switch action {
	case sync.ActionSynced:
		return ui.Success(ui.SymbolSuccess)
	case sync.ActionSkipped:
		return ui.Dim(ui.SymbolSkipped)
	case sync.ActionConflict:
		return ui.Warning(ui.SymbolWarning)
	case sync.ActionError:
		return ui.Error(ui.SymbolError)
	default:
		return ui.Dim(ui.SymbolPending)
	}
}

// recordRun appends the run to the project's sync journal. Journal failures
// are logged, never fatal; the sync itself already happened.
func recordRun(sess *session, result *sync.Result, started time.Time) {
	journal, err := history.Open(util.HistoryPath(sess.project))
	if err != nil {
		logging.Warn("failed to open sync journal", logging.Err(err))
		return
	}
	defer func() { _ = journal.Close() }()

	if _, err := journal.Append(history.NewEntry(result, started)); err != nil {
		logging.Warn("failed to record sync run", logging.Err(err))
	}
}
