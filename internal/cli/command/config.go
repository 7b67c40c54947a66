package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/config"
	"github.com/yndnr/kvopts/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Show the default configuration file path",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	return render(c, configFrom(c))
}

func configPath(c *cli.Context) error {
	output.Plain(c.App.Writer, "%s", config.DefaultConfigPath())
	return nil
}
