package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/flanny7/agent-template/internal/config"
	"github.com/flanny7/agent-template/internal/ui"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display the effective configuration",
		Action: func(_ context.Context, cmd *cli.Command) error {
			project, err := projectDir(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load(project)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if cfg.Path() == "" {
				fmt.Println(ui.Dim("No configuration file found, showing defaults with environment overrides."))
			} else {
				fmt.Println(ui.Dim("Loaded from " + cfg.Path()))
			}

			rendered, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Print(string(rendered))
			return nil
		},
	}
}
