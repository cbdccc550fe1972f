package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/config"
	"github.com/flanny7/agent-template/internal/logging"
	"github.com/flanny7/agent-template/internal/sync"
	"github.com/flanny7/agent-template/internal/upstream"
	"github.com/flanny7/agent-template/internal/workspace"
)

// session bundles the collaborators a template-aware command works with:
// the project configuration, the upstream mirror, and the working tree.
type session struct {
	project string
	cfg     *config.Config
	store   *upstream.Store
	ws      *workspace.Dir
	target  string
}

// projectDir resolves the --project flag to an absolute path.
func projectDir(cmd *cli.Command) (string, error) {
	dir, err := filepath.Abs(cmd.String("project"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return dir, nil
}

// openSession loads the project configuration, opens the template mirror,
// and optionally brings it up to date. The resolved sync target is the
// configured upstream branch.
func openSession(ctx context.Context, cmd *cli.Command, fetch bool) (*session, error) {
	project, err := projectDir(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(project)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := upstream.Open(ctx, cfg.Upstream.Location, "")
	if err != nil {
		return nil, err
	}

	if fetch {
		if err := store.Fetch(ctx); err != nil && !errors.Is(err, upstream.ErrAlreadyUpToDate) {
			return nil, err
		}
	}

	target, err := store.Resolve(cfg.Upstream.Branch)
	if err != nil {
		return nil, err
	}

	logging.Debug("session opened",
		logging.Location(cfg.Upstream.Location),
		logging.Revision(target),
	)

	return &session{
		project: project,
		cfg:     cfg,
		store:   store,
		ws:      workspace.New(project),
		target:  target,
	}, nil
}

// pending computes the scoped change set between the checkpoint and the
// sync target.
func (s *session) pending(ctx context.Context) ([]sync.Change, error) {
	changes, err := s.store.Changes(ctx, s.cfg.LastSyncedRevision, s.target)
	if err != nil {
		return nil, err
	}
	return sync.Filter(changes, s.cfg.Sync.Include, s.cfg.Sync.Exclude), nil
}

// rules builds the strategy resolver from the configured rule list.
func (s *session) rules() *sync.StrategyResolver {
	return sync.NewStrategyResolver(s.cfg.GetRules(), s.cfg.GetStrategy())
}

// advanceCheckpoint persists the new baseline revision. The checkpoint only
// moves forward, to the exact revision the run diffed against.
func (s *session) advanceCheckpoint(revision string) error {
	s.cfg.LastSyncedRevision = revision
	if s.cfg.Path() != "" {
		return s.cfg.Save()
	}
	return s.cfg.SaveToPath(config.DefaultPath(s.project))
}
