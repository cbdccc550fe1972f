package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/flanny7/agent-template/internal/config"
	"github.com/flanny7/agent-template/internal/ui"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Create an agentsync configuration for this project",
		UsageText: "agentsync init [options] <template-location>",
		Description: `Scaffold an .agentsync.yaml tracking the given template repository.

   Examples:
     agentsync init https://github.com/flanny7/agent-template.git
     agentsync init --branch stable --toml ../templates/agent-base`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "branch",
				Value: "main",
				Usage: "Template branch to track",
			},
			&cli.BoolFlag{
				Name:  "toml",
				Usage: "Write .agentsync.toml instead of .agentsync.yaml",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing configuration",
			},
		},
		Action: runInit,
	}
}

func runInit(_ context.Context, cmd *cli.Command) error {
	location := cmd.Args().First()
	if location == "" {
		return errors.New("init requires the template location as argument")
	}

	project, err := projectDir(cmd)
	if err != nil {
		return err
	}

	if existing, found := config.Find(project); found && !cmd.Bool("force") {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", existing)
	}

	cfg := config.Default()
	cfg.Upstream.Location = location
	cfg.Upstream.Branch = cmd.String("branch")

	path := config.DefaultPath(project)
	if cmd.Bool("toml") {
		path = config.DefaultTOMLPath(project)
	}

	if err := cfg.SaveToPath(path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Println(ui.StatusSuccess("Created " + path))
	fmt.Printf("Tracking %s (%s). Run %s to see pending changes.\n",
		location, cfg.Upstream.Branch, ui.Bold("agentsync status"))
	return nil
}
