package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/flanny7/agent-template/internal/logging"
)

// ErrBlobNotFound reports that a path does not exist at the requested
// revision. Store implementations wrap it so callers can test with
// errors.Is.
var ErrBlobNotFound = errors.New("blob not found at revision")

// Store supplies change sets and file content from the upstream template
// repository.
type Store interface {
	// Changes lists paths that differ between two revisions. An empty base
	// revision diffs against the empty tree, so every path comes back as
	// StatusAdded.
	Changes(ctx context.Context, base, target string) ([]Change, error)

	// Blob returns the file content at the given revision. Missing paths
	// yield an error matching ErrBlobNotFound.
	Blob(ctx context.Context, revision, path string) ([]byte, error)
}

// Workspace is the working tree the engine reads and mutates. Read returns
// an error matching fs.ErrNotExist for missing files.
type Workspace interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Remove(path string) error
	Exists(path string) bool
}

// Options configures a sync run.
type Options struct {
	// DryRun previews decisions without touching the working tree and
	// without prompting.
	DryRun bool

	// Force prefers the upstream side for modified files and never prompts.
	// Files pinned with StrategyLocal still survive upstream deletions.
	Force bool

	// Verbose enables detailed output.
	Verbose bool

	// Include and Exclude scope the change set. Excludes win on overlap and
	// an empty include list scopes out everything.
	Include []string
	Exclude []string

	// Rules maps paths to merge strategies, first match wins. Defaults to
	// prompting for everything.
	Rules *StrategyResolver

	// Resolver handles prompt-strategy escalations. When nil those files
	// stay behind as conflicts.
	Resolver Resolver

	// Observe, when set, is called with each file's result as soon as it
	// is decided. Callers use it for progress reporting.
	Observe func(FileResult)
}

// DefaultOptions returns the default sync options.
func DefaultOptions() Options {
	return Options{
		Include: []string{"**"},
		Rules:   NewStrategyResolver(nil, StrategyPrompt),
	}
}

// Engine is the per-file decision machine. It walks the scoped change set in
// order, strictly sequentially, and produces exactly one FileResult per
// path. Per-file failures never abort the run; only a failure computing the
// initial change set does.
type Engine struct {
	store Store
	ws    Workspace
}

// New creates an Engine over the given template store and working tree.
func New(store Store, ws Workspace) *Engine {
	return &Engine{store: store, ws: ws}
}

// Run synchronizes the working tree from the baseline revision to the
// target revision. An empty base treats every in-scope upstream file as
// added. Cancellation is honored between files; the partial result is
// returned alongside the context error.
func (e *Engine) Run(ctx context.Context, base, target string, opts Options) (*Result, error) {
	defer logging.Timer("sync")()

	logging.Debug("starting sync run",
		logging.Revision(target),
		logging.Operation("sync"),
		slog.String("base", base),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("force", opts.Force),
	)

	result := &Result{
		From:   base,
		To:     target,
		DryRun: opts.DryRun,
		Force:  opts.Force,
		Files:  make([]FileResult, 0),
	}

	if opts.Rules == nil {
		opts.Rules = NewStrategyResolver(nil, StrategyPrompt)
	}

	changes, err := e.store.Changes(ctx, base, target)
	if err != nil {
		logging.Error("failed to compute change set",
			logging.Revision(target),
			logging.Operation("sync"),
			logging.Err(err),
		)
		return result, fmt.Errorf("failed to compute change set: %w", err)
	}

	scoped := Filter(changes, opts.Include, opts.Exclude)
	logging.Debug("scoped change set",
		logging.Count(len(scoped)),
		slog.Int("unscoped", len(changes)),
	)

	if len(scoped) == 0 {
		return result, nil // Nothing to sync
	}

	detector := NewDetector(e.store, e.ws, base)

	for _, change := range scoped {
		if err := ctx.Err(); err != nil {
			logging.Warn("sync run interrupted",
				logging.Count(len(result.Files)),
				logging.Err(err),
			)
			return result, err
		}
		fileResult := e.processFile(ctx, change, target, detector, opts)
		result.Files = append(result.Files, fileResult)
		if opts.Observe != nil {
			opts.Observe(fileResult)
		}
	}

	logging.Debug("sync run completed",
		logging.Revision(target),
		logging.Count(len(result.Files)),
	)

	return result, nil
}

// processFile handles a single changed file.
func (e *Engine) processFile(
	ctx context.Context,
	change Change,
	target string,
	detector *Detector,
	opts Options,
) FileResult {
	result := FileResult{
		Path:     change.Path,
		Status:   change.Status,
		Strategy: opts.Rules.Resolve(change.Path),
	}

	logging.Debug("processing file",
		logging.Path(change.Path),
		slog.String(logging.KeyStatus, change.Status.String()),
		slog.String(logging.KeyStrategy, result.Strategy.String()),
	)

	switch change.Status {
	case StatusDeleted:
		result = e.processDeleted(ctx, result, opts)
	case StatusAdded:
		result = e.applyUpstream(ctx, result, target, opts, "new file")
	case StatusModified:
		result = e.processModified(ctx, result, target, detector, opts)
	default:
		result.Action = ActionError
		result.Err = fmt.Errorf("unrecognized change status %q", change.Status)
		result.Detail = "unrecognized change status"
	}

	logging.Debug("action decided",
		logging.Path(result.Path),
		slog.String(logging.KeyAction, result.Action.String()),
		slog.String("detail", result.Detail),
	)

	return result
}

// processDeleted decides what to do about a file removed upstream. Absent
// files and local-pinned files are settled before anything else; the
// local pin survives even a forced run.
func (e *Engine) processDeleted(ctx context.Context, result FileResult, opts Options) FileResult {
	if !e.ws.Exists(result.Path) {
		result.Action = ActionSkipped
		result.Detail = "already absent"
		return result
	}

	if result.Strategy == StrategyLocal {
		result.Action = ActionSkipped
		result.Detail = "kept local"
		return result
	}

	if result.Strategy == StrategyPrompt && !opts.Force {
		if opts.DryRun {
			result.Action = ActionConflict
			result.Detail = "awaiting interactive resolution"
			return result
		}
		return e.escalateDeleted(result, opts)
	}

	return e.removeFile(result, opts)
}

// escalateDeleted asks the resolver whether an upstream deletion should be
// honored. Keeping or skipping preserves the local file; any other choice
// deletes it.
func (e *Engine) escalateDeleted(result FileResult, opts Options) FileResult {
	local, err := e.ws.Read(result.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		result.Action = ActionError
		result.Err = fmt.Errorf("local content unavailable: %w", err)
		result.Detail = "local content unavailable"
		return result
	}
	result.Diff = Unified(result.Path, string(local), "")

	if opts.Resolver == nil {
		result.Action = ActionConflict
		result.Detail = "interactive resolution unavailable"
		return result
	}

	choice, err := opts.Resolver.Resolve(result.Path, result.Diff)
	if err != nil {
		logging.Warn("interactive resolution failed",
			logging.Path(result.Path),
			logging.Err(err),
		)
		result.Action = ActionConflict
		result.Detail = "interactive resolution failed"
		return result
	}

	switch choice {
	case ResolutionLocal:
		result.Action = ActionSkipped
		result.Detail = "kept local"
		return result
	case ResolutionSkip:
		result.Action = ActionSkipped
		result.Detail = "skipped by user"
		return result
	default:
		return e.removeFile(result, opts)
	}
}

// processModified runs the decision table for a file changed upstream.
func (e *Engine) processModified(
	ctx context.Context,
	result FileResult,
	target string,
	detector *Detector,
	opts Options,
) FileResult {
	modified, err := detector.Modified(ctx, result.Path)
	if err != nil {
		result.Action = ActionError
		result.Err = err
		result.Detail = "baseline content unavailable"
		return result
	}

	if !modified {
		return e.applyUpstream(ctx, result, target, opts, "no local changes")
	}

	if opts.Force {
		return e.applyUpstream(ctx, result, target, opts, "forced overwrite")
	}

	switch result.Strategy {
	case StrategyUpstream:
		return e.applyUpstream(ctx, result, target, opts, "took upstream version")

	case StrategyLocal:
		result.Action = ActionSkipped
		result.Detail = "kept local"
		return result

	case StrategyManual:
		result.Diff = e.conflictDiff(ctx, result.Path, target)
		result.Action = ActionConflict
		result.Detail = "requires manual merge"
		return result

	case StrategyPrompt:
		if opts.DryRun {
			result.Action = ActionConflict
			result.Detail = "awaiting interactive resolution"
			return result
		}
		return e.escalateModified(ctx, result, target, opts)

	default:
		result.Action = ActionError
		result.Err = fmt.Errorf("unrecognized strategy %q", result.Strategy)
		result.Detail = "unrecognized strategy"
		return result
	}
}

// escalateModified asks the resolver how to reconcile diverged content.
func (e *Engine) escalateModified(
	ctx context.Context,
	result FileResult,
	target string,
	opts Options,
) FileResult {
	local, err := e.ws.Read(result.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		result.Action = ActionError
		result.Err = fmt.Errorf("local content unavailable: %w", err)
		result.Detail = "local content unavailable"
		return result
	}

	upstream, err := e.store.Blob(ctx, target, result.Path)
	if err != nil {
		result.Action = ActionError
		result.Err = fmt.Errorf("upstream content unavailable: %w", err)
		result.Detail = "upstream content unavailable"
		return result
	}

	result.Diff = Unified(result.Path, string(local), string(upstream))

	if opts.Resolver == nil {
		result.Action = ActionConflict
		result.Detail = "interactive resolution unavailable"
		return result
	}

	choice, err := opts.Resolver.Resolve(result.Path, result.Diff)
	if err != nil {
		logging.Warn("interactive resolution failed",
			logging.Path(result.Path),
			logging.Err(err),
		)
		result.Action = ActionConflict
		result.Detail = "interactive resolution failed"
		return result
	}

	switch choice {
	case ResolutionUpstream:
		return e.writeContent(result, upstream, opts, "took upstream version")
	case ResolutionLocal:
		result.Action = ActionSkipped
		result.Detail = "kept local"
		return result
	case ResolutionSkip:
		result.Action = ActionSkipped
		result.Detail = "skipped by user"
		return result
	case ResolutionManual:
		result.Action = ActionConflict
		result.Detail = "requires manual merge"
		return result
	default:
		result.Action = ActionConflict
		result.Detail = fmt.Sprintf("unrecognized resolution %q", choice)
		return result
	}
}

// applyUpstream fetches the target-revision content and writes it out.
func (e *Engine) applyUpstream(
	ctx context.Context,
	result FileResult,
	target string,
	opts Options,
	detail string,
) FileResult {
	content, err := e.store.Blob(ctx, target, result.Path)
	if err != nil {
		result.Action = ActionError
		result.Err = fmt.Errorf("upstream content unavailable: %w", err)
		result.Detail = "upstream content unavailable"
		return result
	}
	return e.writeContent(result, content, opts, detail)
}

// writeContent applies already-fetched upstream content to the working tree.
func (e *Engine) writeContent(result FileResult, content []byte, opts Options, detail string) FileResult {
	if !opts.DryRun {
		if err := e.ws.Write(result.Path, content); err != nil {
			logging.Error("failed to write file",
				logging.Path(result.Path),
				logging.Err(err),
			)
			result.Action = ActionError
			result.Err = fmt.Errorf("failed to write file: %w", err)
			result.Detail = "write failed"
			return result
		}
	}
	result.Action = ActionSynced
	result.Detail = detail
	return result
}

// removeFile honours an upstream deletion.
func (e *Engine) removeFile(result FileResult, opts Options) FileResult {
	if !opts.DryRun {
		if err := e.ws.Remove(result.Path); err != nil {
			logging.Error("failed to remove file",
				logging.Path(result.Path),
				logging.Err(err),
			)
			result.Action = ActionError
			result.Err = fmt.Errorf("failed to remove file: %w", err)
			result.Detail = "remove failed"
			return result
		}
	}
	result.Action = ActionSynced
	result.Detail = "removed"
	return result
}

// conflictDiff builds the local-vs-upstream diff for conflict reporting.
// Failures leave the diff empty; the conflict stands either way.
func (e *Engine) conflictDiff(ctx context.Context, path, target string) string {
	local, err := e.ws.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	upstream, err := e.store.Blob(ctx, target, path)
	if err != nil {
		return ""
	}
	return Unified(path, string(local), string(upstream))
}
