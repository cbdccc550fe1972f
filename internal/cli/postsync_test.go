package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunPostSyncExecutesInOrder(t *testing.T) {
	dir := t.TempDir()

	runPostSync(context.Background(), dir, []string{
		"echo first > order.txt",
		"echo second >> order.txt",
	})

	data, err := os.ReadFile(filepath.Join(dir, "order.txt"))
	if err != nil {
		t.Fatalf("post-sync commands did not run: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("commands ran out of order: %q", string(data))
	}
}

func TestRunPostSyncContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()

	runPostSync(context.Background(), dir, []string{
		"exit 1",
		"touch survived",
	})

	if _, err := os.Stat(filepath.Join(dir, "survived")); err != nil {
		t.Errorf("later commands should still run after a failure: %v", err)
	}
}

func TestRunPostSyncNoCommands(t *testing.T) {
	// Must be a no-op.
	runPostSync(context.Background(), t.TempDir(), nil)
}
