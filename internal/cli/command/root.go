package command

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/config"
	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/internal/infra/buildinfo"
	"github.com/yndnr/kvopts/internal/telemetry/logger"
	"github.com/yndnr/kvopts/pkg/cache"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "kvopts",
		Usage:   "Inspect, check and open persisted engine OPTIONS files",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InspectCommand(),
			CheckCommand(),
			DumpCommand(),
			OpenCommand(),
			WatchCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
		Before:   before,
		Metadata: make(map[string]any),
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file (default: ~/.kvopts/cli.yaml)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: text, json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:  "ignore-unknown-options",
			Usage: "Skip option names this build does not know",
		},
		&cli.Int64Flag{
			Name:  "cache-size",
			Usage: "Shared LRU block cache size in bytes (0 for none)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

// flagKeys maps global flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":              "log.level",
	"log-format":             "log.format",
	"output":                 "output",
	"ignore-unknown-options": "load.ignore_unknown_options",
	"cache-size":             "load.cache_size",
}

func before(c *cli.Context) error {
	flags := make(map[string]any)
	for name, key := range flagKeys {
		if c.IsSet(name) {
			flags[key] = c.Value(name)
		}
	}

	cfg, err := config.Load(c.String("config"), flags)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	if c.Bool("no-color") {
		output.DisableColor()
	}

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = log
	return nil
}

// configFrom returns the configuration built by the Before hook, or the
// defaults when the hook did not run.
func configFrom(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// loggerFrom returns the logger built by the Before hook.
func loggerFrom(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata[metaLogger].(*slog.Logger); ok {
		return l
	}
	return logger.Discard()
}

// render writes data to stdout in the configured format.
func render(c *cli.Context, data any) error {
	f := output.NewFormatter(output.Format(configFrom(c).Output))
	return f.Format(c.App.Writer, data)
}

// args returns exactly n positional arguments.
func args(c *cli.Context, names ...string) ([]string, error) {
	if c.NArg() != len(names) {
		return nil, cli.Exit(fmt.Sprintf("%s: expected arguments %v, got %d", c.Command.Name, names, c.NArg()), 2)
	}
	return c.Args().Slice(), nil
}

// blockCache creates the shared block cache of the configured size.
func blockCache(size int64) (cache.Handle, error) {
	if size <= 0 {
		return cache.Null(), nil
	}
	return cache.NewLRU(size)
}
