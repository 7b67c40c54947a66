package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show build information",
		Action: showVersion,
	}
}

type versionReport buildinfo.Info

// Tables implements output.Tabler.
func (v versionReport) Tables() []*output.Table {
	t := &output.Table{}
	t.AddRow("Version:", v.Version)
	t.AddRow("Commit:", v.Commit)
	t.AddRow("Built:", v.BuildTime)
	t.AddRow("Go:", v.GoVersion)
	t.AddRow("Engine:", buildinfo.EngineModule+" "+v.Engine)
	return []*output.Table{t}
}

func showVersion(c *cli.Context) error {
	return render(c, versionReport(buildinfo.Get()))
}
