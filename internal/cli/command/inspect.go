package command

import (
	"slices"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/loader"
	"github.com/yndnr/kvopts/pkg/options"
)

// InspectCommand returns the inspect command.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Load an OPTIONS file and show the resulting configuration",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "cf",
				Usage: "Show every setting of the named column family (repeatable)",
			},
		},
		Action: inspect,
	}
}

// familyReport is one loaded column family.
type familyReport struct {
	Name       string            `json:"name" yaml:"name"`
	BlockCache string            `json:"block_cache" yaml:"block_cache"`
	Settings   map[string]string `json:"settings" yaml:"settings"`
}

// inspectReport is the result of inspect.
type inspectReport struct {
	Path           string            `json:"path" yaml:"path"`
	FormatVersion  string            `json:"format_version" yaml:"format_version"`
	DBOptions      map[string]string `json:"db_options" yaml:"db_options"`
	ColumnFamilies []familyReport    `json:"column_families" yaml:"column_families"`

	detail []string
}

func newInspectReport(path string, res *loader.Result, detail []string) *inspectReport {
	r := &inspectReport{
		Path:          path,
		FormatVersion: res.FormatVersion,
		DBOptions:     settingsMap(res.Options, options.SectionDB),
		detail:        detail,
	}
	for i := range res.Descriptors.Len() {
		o := res.Descriptors.Options(i)
		s := settingsMap(o, options.SectionCF)
		for k, v := range settingsMap(o, options.SectionTable) {
			s["table."+k] = v
		}
		r.ColumnFamilies = append(r.ColumnFamilies, familyReport{
			Name:       res.Descriptors.Name(i),
			BlockCache: o.Table.BlockCache.String(),
			Settings:   s,
		})
		o.Close()
	}
	return r
}

func settingsMap(o *options.Options, section options.Section) map[string]string {
	out := make(map[string]string)
	for _, s := range o.Settings(section) {
		out[s.Name] = s.Value
	}
	return out
}

// Tables implements output.Tabler.
func (r *inspectReport) Tables() []*output.Table {
	db := output.NewTable("OPTION", "VALUE")
	db.Title = "DBOptions (format " + r.FormatVersion + ")"
	for _, k := range sortedKeys(r.DBOptions) {
		db.AddRow(k, r.DBOptions[k])
	}

	cfs := output.NewTable("#", "NAME", "WRITE_BUFFER_SIZE", "COMPRESSION", "TTL", "BLOCK_SIZE", "BLOCK_CACHE")
	cfs.Title = "Column families"
	for i, cf := range r.ColumnFamilies {
		cfs.AddRow(strconv.Itoa(i), cf.Name,
			cf.Settings["write_buffer_size"],
			cf.Settings["compression"],
			cf.Settings["ttl"],
			cf.Settings["table.block_size"],
			cf.BlockCache,
		)
	}

	tables := []*output.Table{db, cfs}
	for _, cf := range r.ColumnFamilies {
		if !slices.Contains(r.detail, cf.Name) {
			continue
		}
		t := output.NewTable("OPTION", "VALUE")
		t.Title = "Column family " + strconv.Quote(cf.Name)
		for _, k := range sortedKeys(cf.Settings) {
			t.AddRow(k, cf.Settings[k])
		}
		tables = append(tables, t)
	}
	return tables
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func inspect(c *cli.Context) error {
	a, err := args(c, "FILE")
	if err != nil {
		return err
	}
	cfg := configFrom(c)

	bc, err := blockCache(cfg.Load.CacheSize)
	if err != nil {
		return err
	}
	defer bc.Release()

	ld := loader.New(loader.WithLogger(loggerFrom(c)))
	res, err := ld.Load(c.Context, a[0], env.Default(), cfg.Load.IgnoreUnknownOptions, bc)
	if err != nil {
		return err
	}
	defer res.Close()

	return render(c, newInspectReport(a[0], res, c.StringSlice("cf")))
}
