package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

// fakeStore serves change sets and blobs from in-memory maps.
type fakeStore struct {
	changes    []Change
	changesErr error
	blobs      map[string]map[string][]byte // revision -> path -> content
	blobErr    error
}

func (f *fakeStore) Changes(ctx context.Context, base, target string) ([]Change, error) {
	if f.changesErr != nil {
		return nil, f.changesErr
	}
	return f.changes, nil
}

func (f *fakeStore) Blob(ctx context.Context, revision, path string) ([]byte, error) {
	if f.blobErr != nil {
		return nil, f.blobErr
	}
	if rev, ok := f.blobs[revision]; ok {
		if content, ok := rev[path]; ok {
			return content, nil
		}
	}
	return nil, fmt.Errorf("%w: %s at %s", ErrBlobNotFound, path, revision)
}

// fakeWorkspace is an in-memory working tree that records mutations.
type fakeWorkspace struct {
	files     map[string][]byte
	writeErr  error
	removeErr error
	writes    []string
	removes   []string
}

func newFakeWorkspace(files map[string]string) *fakeWorkspace {
	ws := &fakeWorkspace{files: make(map[string][]byte)}
	for path, content := range files {
		ws.files[path] = []byte(content)
	}
	return ws
}

func (f *fakeWorkspace) Read(path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, path)
	}
	return content, nil
}

func (f *fakeWorkspace) Write(path string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.files[path] = data
	f.writes = append(f.writes, path)
	return nil
}

func (f *fakeWorkspace) Remove(path string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.files, path)
	f.removes = append(f.removes, path)
	return nil
}

func (f *fakeWorkspace) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

// fakeResolver returns a fixed choice and records what it was asked about.
type fakeResolver struct {
	choice Resolution
	err    error
	calls  []string
}

func (f *fakeResolver) Resolve(path, diff string) (Resolution, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return f.choice, nil
}

func runOptions() Options {
	return Options{
		Include: []string{"**"},
		Rules:   NewStrategyResolver(nil, StrategyPrompt),
	}
}

func TestEngine_AddedWritesUpstreamContent(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "docs/new.md", Status: StatusAdded}},
		blobs: map[string]map[string][]byte{
			"v2": {"docs/new.md": []byte("# New Doc\n")},
		},
	}
	ws := newFakeWorkspace(nil)
	engine := New(store, ws)

	result, err := engine.Run(context.Background(), "v1", "v2", runOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Files) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Files))
	}
	fr := result.Files[0]
	if fr.Action != ActionSynced {
		t.Errorf("Action = %q, want %q", fr.Action, ActionSynced)
	}
	if fr.Detail != "new file" {
		t.Errorf("Detail = %q, want %q", fr.Detail, "new file")
	}
	if got := string(ws.files["docs/new.md"]); got != "# New Doc\n" {
		t.Errorf("working file = %q, want upstream content byte-for-byte", got)
	}
}

func TestEngine_ModifiedWithoutLocalChanges(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "CLAUDE.md", Status: StatusModified}},
		blobs: map[string]map[string][]byte{
			"v1": {"CLAUDE.md": []byte("old\n")},
			"v2": {"CLAUDE.md": []byte("new\n")},
		},
	}
	ws := newFakeWorkspace(map[string]string{"CLAUDE.md": "old\n"})
	engine := New(store, ws)

	result, err := engine.Run(context.Background(), "v1", "v2", runOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fr := result.Files[0]
	if fr.Action != ActionSynced {
		t.Errorf("Action = %q, want %q", fr.Action, ActionSynced)
	}
	if fr.Detail != "no local changes" {
		t.Errorf("Detail = %q, want %q", fr.Detail, "no local changes")
	}
	if got := string(ws.files["CLAUDE.md"]); got != "new\n" {
		t.Errorf("working file = %q, want %q", got, "new\n")
	}
}

func TestEngine_ModifiedWithLocalChanges(t *testing.T) {
	tests := []struct {
		name        string
		strategy    Strategy
		force       bool
		resolver    *fakeResolver
		wantAction  Action
		wantDetail  string
		wantContent string
	}{
		{
			name:        "force overwrites regardless of strategy",
			strategy:    StrategyLocal,
			force:       true,
			wantAction:  ActionSynced,
			wantDetail:  "forced overwrite",
			wantContent: "upstream\n",
		},
		{
			name:        "upstream strategy takes upstream",
			strategy:    StrategyUpstream,
			wantAction:  ActionSynced,
			wantDetail:  "took upstream version",
			wantContent: "upstream\n",
		},
		{
			name:        "local strategy keeps local",
			strategy:    StrategyLocal,
			wantAction:  ActionSkipped,
			wantDetail:  "kept local",
			wantContent: "edited\n",
		},
		{
			name:        "manual strategy flags conflict without mutation",
			strategy:    StrategyManual,
			wantAction:  ActionConflict,
			wantDetail:  "requires manual merge",
			wantContent: "edited\n",
		},
		{
			name:        "prompt with upstream response",
			strategy:    StrategyPrompt,
			resolver:    &fakeResolver{choice: ResolutionUpstream},
			wantAction:  ActionSynced,
			wantDetail:  "took upstream version",
			wantContent: "upstream\n",
		},
		{
			name:        "prompt with local response",
			strategy:    StrategyPrompt,
			resolver:    &fakeResolver{choice: ResolutionLocal},
			wantAction:  ActionSkipped,
			wantDetail:  "kept local",
			wantContent: "edited\n",
		},
		{
			name:        "prompt with skip response",
			strategy:    StrategyPrompt,
			resolver:    &fakeResolver{choice: ResolutionSkip},
			wantAction:  ActionSkipped,
			wantDetail:  "skipped by user",
			wantContent: "edited\n",
		},
		{
			name:        "prompt with manual response",
			strategy:    StrategyPrompt,
			resolver:    &fakeResolver{choice: ResolutionManual},
			wantAction:  ActionConflict,
			wantDetail:  "requires manual merge",
			wantContent: "edited\n",
		},
		{
			name:        "prompt with resolver failure stays conflicted",
			strategy:    StrategyPrompt,
			resolver:    &fakeResolver{err: errors.New("stdin closed")},
			wantAction:  ActionConflict,
			wantDetail:  "interactive resolution failed",
			wantContent: "edited\n",
		},
		{
			name:        "prompt without resolver stays conflicted",
			strategy:    StrategyPrompt,
			wantAction:  ActionConflict,
			wantDetail:  "interactive resolution unavailable",
			wantContent: "edited\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				changes: []Change{{Path: "config/app.json", Status: StatusModified}},
				blobs: map[string]map[string][]byte{
					"v1": {"config/app.json": []byte("pristine\n")},
					"v2": {"config/app.json": []byte("upstream\n")},
				},
			}
			ws := newFakeWorkspace(map[string]string{"config/app.json": "edited\n"})
			engine := New(store, ws)

			opts := runOptions()
			opts.Force = tt.force
			opts.Rules = NewStrategyResolver(nil, tt.strategy)
			if tt.resolver != nil {
				opts.Resolver = tt.resolver
			}

			result, err := engine.Run(context.Background(), "v1", "v2", opts)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			fr := result.Files[0]
			if fr.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", fr.Action, tt.wantAction)
			}
			if fr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", fr.Detail, tt.wantDetail)
			}
			if got := string(ws.files["config/app.json"]); got != tt.wantContent {
				t.Errorf("working file = %q, want %q", got, tt.wantContent)
			}
		})
	}
}

func TestEngine_PromptConflictCarriesDiff(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "config/app.json", Status: StatusModified}},
		blobs: map[string]map[string][]byte{
			"v1": {"config/app.json": []byte("pristine\n")},
			"v2": {"config/app.json": []byte("upstream\n")},
		},
	}
	ws := newFakeWorkspace(map[string]string{"config/app.json": "edited\n"})
	engine := New(store, ws)

	opts := runOptions()
	opts.Rules = NewStrategyResolver(nil, StrategyManual)

	result, err := engine.Run(context.Background(), "v1", "v2", opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fr := result.Files[0]
	if fr.Action != ActionConflict {
		t.Fatalf("Action = %q, want %q", fr.Action, ActionConflict)
	}
	if fr.Diff == "" {
		t.Error("expected conflict to carry a diff")
	}
}

func TestEngine_DeletedDecisions(t *testing.T) {
	tests := []struct {
		name       string
		strategy   Strategy
		force      bool
		present    bool
		resolver   *fakeResolver
		wantAction Action
		wantDetail string
		wantGone   bool
	}{
		{
			name:       "absent file is skipped",
			strategy:   StrategyPrompt,
			present:    false,
			wantAction: ActionSkipped,
			wantDetail: "already absent",
		},
		{
			name:       "local strategy keeps the file",
			strategy:   StrategyLocal,
			present:    true,
			wantAction: ActionSkipped,
			wantDetail: "kept local",
		},
		{
			name:       "local strategy survives force",
			strategy:   StrategyLocal,
			force:      true,
			present:    true,
			wantAction: ActionSkipped,
			wantDetail: "kept local",
		},
		{
			name:       "force deletes without prompting",
			strategy:   StrategyPrompt,
			force:      true,
			present:    true,
			wantAction: ActionSynced,
			wantDetail: "removed",
			wantGone:   true,
		},
		{
			name:       "upstream strategy deletes",
			strategy:   StrategyUpstream,
			present:    true,
			wantAction: ActionSynced,
			wantDetail: "removed",
			wantGone:   true,
		},
		{
			name:       "manual strategy deletes without prompting",
			strategy:   StrategyManual,
			present:    true,
			wantAction: ActionSynced,
			wantDetail: "removed",
			wantGone:   true,
		},
		{
			name:       "prompt with local response keeps the file",
			strategy:   StrategyPrompt,
			present:    true,
			resolver:   &fakeResolver{choice: ResolutionLocal},
			wantAction: ActionSkipped,
			wantDetail: "kept local",
		},
		{
			name:       "prompt with skip response keeps the file",
			strategy:   StrategyPrompt,
			present:    true,
			resolver:   &fakeResolver{choice: ResolutionSkip},
			wantAction: ActionSkipped,
			wantDetail: "skipped by user",
		},
		{
			name:       "prompt with upstream response deletes",
			strategy:   StrategyPrompt,
			present:    true,
			resolver:   &fakeResolver{choice: ResolutionUpstream},
			wantAction: ActionSynced,
			wantDetail: "removed",
			wantGone:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				changes: []Change{{Path: "old.txt", Status: StatusDeleted}},
				blobs: map[string]map[string][]byte{
					"v1": {"old.txt": []byte("old content\n")},
					"v2": {},
				},
			}
			files := map[string]string{}
			if tt.present {
				files["old.txt"] = "old content\n"
			}
			ws := newFakeWorkspace(files)
			engine := New(store, ws)

			opts := runOptions()
			opts.Force = tt.force
			opts.Rules = NewStrategyResolver(nil, tt.strategy)
			if tt.resolver != nil {
				opts.Resolver = tt.resolver
			}

			result, err := engine.Run(context.Background(), "v1", "v2", opts)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			fr := result.Files[0]
			if fr.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", fr.Action, tt.wantAction)
			}
			if fr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", fr.Detail, tt.wantDetail)
			}
			if gone := !ws.Exists("old.txt"); tt.present && gone != tt.wantGone {
				t.Errorf("file gone = %v, want %v", gone, tt.wantGone)
			}
		})
	}
}

func TestEngine_DryRunNeverMutatesOrPrompts(t *testing.T) {
	store := &fakeStore{
		changes: []Change{
			{Path: "docs/new.md", Status: StatusAdded},
			{Path: "config/app.json", Status: StatusModified},
			{Path: "old.txt", Status: StatusDeleted},
		},
		blobs: map[string]map[string][]byte{
			"v1": {
				"config/app.json": []byte("pristine\n"),
				"old.txt":         []byte("old\n"),
			},
			"v2": {
				"docs/new.md":     []byte("# New\n"),
				"config/app.json": []byte("upstream\n"),
			},
		},
	}
	ws := newFakeWorkspace(map[string]string{
		"config/app.json": "edited\n",
		"old.txt":         "old\n",
	})
	resolver := &fakeResolver{choice: ResolutionUpstream}
	engine := New(store, ws)

	opts := runOptions()
	opts.DryRun = true
	opts.Resolver = resolver

	result, err := engine.Run(context.Background(), "v1", "v2", opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.DryRun {
		t.Error("expected result to be tagged as dry run")
	}
	if len(ws.writes) != 0 || len(ws.removes) != 0 {
		t.Errorf("dry run mutated the tree: writes=%v removes=%v", ws.writes, ws.removes)
	}
	if len(resolver.calls) != 0 {
		t.Errorf("dry run prompted for %v", resolver.calls)
	}
	if got := string(ws.files["config/app.json"]); got != "edited\n" {
		t.Errorf("working file changed during dry run: %q", got)
	}

	byPath := map[string]FileResult{}
	for _, fr := range result.Files {
		byPath[fr.Path] = fr
	}
	if byPath["docs/new.md"].Action != ActionSynced {
		t.Errorf("added file projected %q, want %q", byPath["docs/new.md"].Action, ActionSynced)
	}
	if byPath["config/app.json"].Action != ActionConflict {
		t.Errorf("prompt file projected %q, want %q", byPath["config/app.json"].Action, ActionConflict)
	}
	if byPath["config/app.json"].Detail != "awaiting interactive resolution" {
		t.Errorf("prompt file detail = %q", byPath["config/app.json"].Detail)
	}
	if byPath["old.txt"].Action != ActionConflict {
		t.Errorf("deleted prompt file projected %q, want %q", byPath["old.txt"].Action, ActionConflict)
	}
}

func TestEngine_DryRunForcedDeleteProjectsSynced(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "old.txt", Status: StatusDeleted}},
		blobs:   map[string]map[string][]byte{"v1": {"old.txt": []byte("old\n")}},
	}
	ws := newFakeWorkspace(map[string]string{"old.txt": "old\n"})
	engine := New(store, ws)

	opts := runOptions()
	opts.DryRun = true
	opts.Force = true

	result, err := engine.Run(context.Background(), "v1", "v2", opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fr := result.Files[0]
	if fr.Action != ActionSynced {
		t.Errorf("Action = %q, want %q", fr.Action, ActionSynced)
	}
	if !ws.Exists("old.txt") {
		t.Error("dry run removed the file")
	}
}

func TestEngine_ContentUnavailableIsolatedToFile(t *testing.T) {
	store := &fakeStore{
		changes: []Change{
			{Path: "missing.md", Status: StatusAdded},
			{Path: "docs/ok.md", Status: StatusAdded},
		},
		blobs: map[string]map[string][]byte{
			"v2": {"docs/ok.md": []byte("fine\n")},
		},
	}
	ws := newFakeWorkspace(nil)
	engine := New(store, ws)

	result, err := engine.Run(context.Background(), "v1", "v2", runOptions())
	if err != nil {
		t.Fatalf("Run() error = %v, per-file failures must not abort", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Files))
	}
	if result.Files[0].Action != ActionError {
		t.Errorf("missing blob Action = %q, want %q", result.Files[0].Action, ActionError)
	}
	if !errors.Is(result.Files[0].Err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", result.Files[0].Err)
	}
	if result.Files[1].Action != ActionSynced {
		t.Errorf("subsequent file Action = %q, want %q", result.Files[1].Action, ActionSynced)
	}
}

func TestEngine_ChangeSetFailureAbortsRun(t *testing.T) {
	store := &fakeStore{changesErr: errors.New("remote unreachable")}
	engine := New(store, newFakeWorkspace(nil))

	result, err := engine.Run(context.Background(), "v1", "v2", runOptions())
	if err == nil {
		t.Fatal("expected error when the change set cannot be computed")
	}
	if len(result.Files) != 0 {
		t.Errorf("got %d results, want 0", len(result.Files))
	}
}

func TestEngine_EmptyChangeSetIsIdempotent(t *testing.T) {
	store := &fakeStore{changes: nil}
	ws := newFakeWorkspace(map[string]string{"CLAUDE.md": "content\n"})
	engine := New(store, ws)

	result, err := engine.Run(context.Background(), "v2", "v2", runOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Files) != 0 {
		t.Errorf("got %d results, want 0", len(result.Files))
	}
	if len(ws.writes) != 0 || len(ws.removes) != 0 {
		t.Error("empty change set must produce zero mutations")
	}
	if result.ShouldAdvance() {
		t.Error("zero synced files must not advance the checkpoint")
	}
}

func TestEngine_FilterScopesChangeSet(t *testing.T) {
	store := &fakeStore{
		changes: []Change{
			{Path: "docs/a.md", Status: StatusAdded},
			{Path: "src/main.go", Status: StatusAdded},
		},
		blobs: map[string]map[string][]byte{
			"v2": {
				"docs/a.md":   []byte("a\n"),
				"src/main.go": []byte("package main\n"),
			},
		},
	}
	ws := newFakeWorkspace(nil)
	engine := New(store, ws)

	opts := runOptions()
	opts.Include = []string{"docs/**"}

	result, err := engine.Run(context.Background(), "", "v2", opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(result.Files) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Files))
	}
	if result.Files[0].Path != "docs/a.md" {
		t.Errorf("processed %q, want docs/a.md", result.Files[0].Path)
	}
	if ws.Exists("src/main.go") {
		t.Error("out-of-scope file must not be written")
	}
}

func TestEngine_CancellationStopsBetweenFiles(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "docs/a.md", Status: StatusAdded}},
		blobs:   map[string]map[string][]byte{"v2": {"docs/a.md": []byte("a\n")}},
	}
	engine := New(store, newFakeWorkspace(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx, "", "v2", runOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("got %d results after cancellation, want 0", len(result.Files))
	}
}

func TestEngine_ResultAdvancesOnlyWithSyncedFiles(t *testing.T) {
	store := &fakeStore{
		changes: []Change{{Path: "config/app.json", Status: StatusModified}},
		blobs: map[string]map[string][]byte{
			"v1": {"config/app.json": []byte("pristine\n")},
			"v2": {"config/app.json": []byte("upstream\n")},
		},
	}
	ws := newFakeWorkspace(map[string]string{"config/app.json": "edited\n"})
	engine := New(store, ws)

	opts := runOptions()
	opts.Rules = NewStrategyResolver(nil, StrategyLocal)

	result, err := engine.Run(context.Background(), "v1", "v2", opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.ShouldAdvance() {
		t.Error("all-skipped run must not advance the checkpoint")
	}
}

func TestEngine_ObserveSeesEveryResultInOrder(t *testing.T) {
	store := &fakeStore{
		changes: []Change{
			{Path: "docs/a.md", Status: StatusAdded},
			{Path: "docs/b.md", Status: StatusAdded},
		},
		blobs: map[string]map[string][]byte{
			"v2": {"docs/a.md": []byte("a\n"), "docs/b.md": []byte("b\n")},
		},
	}
	engine := New(store, newFakeWorkspace(nil))

	var seen []string
	opts := runOptions()
	opts.Observe = func(fr FileResult) { seen = append(seen, fr.Path) }

	if _, err := engine.Run(context.Background(), "", "v2", opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(seen) != 2 || seen[0] != "docs/a.md" || seen[1] != "docs/b.md" {
		t.Errorf("observed %v, want both files in scope order", seen)
	}
}
