package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/flanny7/agent-template/internal/logging"
	"github.com/flanny7/agent-template/internal/ui"
)

// runPostSync executes the configured post-sync commands through the shell,
// in declaration order, from the project directory. A failing command is
// reported and the rest still run; the sync itself already happened.
func runPostSync(ctx context.Context, dir string, commands []string) {
	for _, command := range commands {
		logging.Info("running post-sync command", logging.Operation("post-sync"))
		fmt.Println(ui.Dim("$ " + command))

		done := logging.Timer("post-sync command")
		shell := exec.CommandContext(ctx, "sh", "-c", command)
		shell.Dir = dir
		shell.Stdout = os.Stdout
		shell.Stderr = os.Stderr

		err := shell.Run()
		done()
		if err != nil {
			fmt.Println(ui.StatusWarning(fmt.Sprintf("post-sync command failed: %v", err)))
			logging.Warn("post-sync command failed",
				logging.Operation("post-sync"),
				logging.Err(err),
			)
		}
	}
}
