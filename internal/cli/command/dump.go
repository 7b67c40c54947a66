package command

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/infra/buildinfo"
	"github.com/yndnr/kvopts/internal/optfile"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/loader"
)

// DumpCommand returns the dump command.
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Load an OPTIONS file and write it back in canonical form",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "engine-version",
				Usage: "Engine version written to [Version] (default: linked engine)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"f"},
				Usage:   "Write to this file instead of stdout",
			},
		},
		Action: dump,
	}
}

func dump(c *cli.Context) error {
	a, err := args(c, "FILE")
	if err != nil {
		return err
	}
	cfg := configFrom(c)

	ld := loader.New(loader.WithLogger(loggerFrom(c)))
	res, err := ld.Load(c.Context, a[0], env.Default(), cfg.Load.IgnoreUnknownOptions, cache.Null())
	if err != nil {
		return err
	}
	defer res.Close()

	families := res.Descriptors.Copy()
	defer func() {
		for _, d := range families {
			d.Options.Close()
		}
	}()

	version := c.String("engine-version")
	if version == "" {
		version = buildinfo.EngineVersion()
	}

	out := c.String("out")
	if out == "" {
		return optfile.Encode(c.App.Writer, version, res.Options.DB, families)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := optfile.Encode(f, version, res.Options.DB, families); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
