package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/internal/optfile"
	"github.com/yndnr/kvopts/pkg/env"
)

// CheckCommand returns the check command.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate one or more OPTIONS files",
		ArgsUsage: "FILE...",
		Action:    check,
	}
}

// checkResult is the outcome for one file.
type checkResult struct {
	Path           string `json:"path" yaml:"path"`
	OK             bool   `json:"ok" yaml:"ok"`
	FormatVersion  string `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	ColumnFamilies int    `json:"column_families,omitempty" yaml:"column_families,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

func check(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("check: expected at least one FILE", 2)
	}
	cfg := configFrom(c)
	log := loggerFrom(c)

	results := make([]checkResult, 0, c.NArg())
	failed := 0
	for _, path := range c.Args().Slice() {
		r := checkResult{Path: path}
		f, err := optfile.Read(env.Default(), path, cfg.Load.IgnoreUnknownOptions)
		if err != nil {
			log.Debug("options file invalid", "path", path, "error", err)
			r.Error = err.Error()
			failed++
		} else {
			r.OK = true
			r.FormatVersion = f.FormatVersion
			r.ColumnFamilies = len(f.Families)
		}
		results = append(results, r)
	}

	if output.Format(cfg.Output) == output.FormatTable {
		w := c.App.Writer
		for _, r := range results {
			if r.OK {
				output.Success(w, "%s: %d column families, format %s", r.Path, r.ColumnFamilies, r.FormatVersion)
			} else {
				output.Failure(w, "%s: %s", r.Path, r.Error)
			}
		}
	} else if err := render(c, results); err != nil {
		return err
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files invalid", failed, len(results)), 1)
	}
	return nil
}
