package cli

import (
	"testing"

	"github.com/flanny7/agent-template/internal/config"
)

func TestHistoryCommandWithoutRuns(t *testing.T) {
	if err := runCLI(t, "-C", t.TempDir(), "history"); err != nil {
		t.Fatalf("history on a fresh project failed: %v", err)
	}
}

func TestConfigCommandShowsDefaults(t *testing.T) {
	if err := runCLI(t, "-C", t.TempDir(), "config"); err != nil {
		t.Fatalf("config on a fresh project failed: %v", err)
	}
}

func TestConfigCommandShowsLoadedFile(t *testing.T) {
	project := t.TempDir()
	cfg := config.Default()
	cfg.Upstream.Location = "https://example.com/base.git"
	if err := cfg.SaveToPath(config.DefaultPath(project)); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := runCLI(t, "-C", project, "config"); err != nil {
		t.Fatalf("config failed: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	if err := runCLI(t, "version"); err != nil {
		t.Fatalf("version failed: %v", err)
	}
}

func TestSyncRequiresUpstreamLocation(t *testing.T) {
	// No config file and no environment override: validation must fail
	// before anything touches the working tree.
	if err := runCLI(t, "-C", t.TempDir(), "sync"); err == nil {
		t.Error("expected sync to fail without an upstream location")
	}
}

func TestStatusRequiresUpstreamLocation(t *testing.T) {
	if err := runCLI(t, "-C", t.TempDir(), "status"); err == nil {
		t.Error("expected status to fail without an upstream location")
	}
}
