package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvopts/internal/cli/output"
	"github.com/yndnr/kvopts/internal/storage"
	"github.com/yndnr/kvopts/pkg/loader"
)

// OpenCommand returns the open command.
func OpenCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a database with the configuration of an OPTIONS file",
		ArgsUsage: "FILE DIR",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "cf",
				Usage: "Column family to open besides \"default\" (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "ignore-unknown-column-families",
				Usage: "Open column families of the file that were not named with --cf",
			},
			&cli.BoolFlag{
				Name:  "create",
				Usage: "Create the database and missing column families",
			},
		},
		Action: openDatabase,
	}
}

// openFamily is one open column family.
type openFamily struct {
	Name       string `json:"name" yaml:"name"`
	ID         uint32 `json:"id" yaml:"id"`
	Keys       uint64 `json:"keys" yaml:"keys"`
	TTL        string `json:"ttl" yaml:"ttl"`
	BlockCache string `json:"block_cache" yaml:"block_cache"`
}

// openReport is the result of open.
type openReport struct {
	Dir            string       `json:"dir" yaml:"dir"`
	InMemory       bool         `json:"in_memory" yaml:"in_memory"`
	TotalKeys      uint64       `json:"total_keys" yaml:"total_keys"`
	LSMSize        uint64       `json:"lsm_size" yaml:"lsm_size"`
	ValueLogSize   uint64       `json:"value_log_size" yaml:"value_log_size"`
	ColumnFamilies []openFamily `json:"column_families" yaml:"column_families"`
}

// Tables implements output.Tabler.
func (r *openReport) Tables() []*output.Table {
	t := output.NewTable("NAME", "ID", "KEYS", "TTL", "BLOCK_CACHE")
	t.Title = "Database " + r.Dir
	if r.InMemory {
		t.Title = "Database (in memory)"
	}
	for _, cf := range r.ColumnFamilies {
		t.AddRow(cf.Name, strconv.FormatUint(uint64(cf.ID), 10), strconv.FormatUint(cf.Keys, 10), cf.TTL, cf.BlockCache)
	}
	return []*output.Table{t}
}

func openDatabase(c *cli.Context) error {
	a, err := args(c, "FILE", "DIR")
	if err != nil {
		return err
	}
	cfg := configFrom(c)
	log := loggerFrom(c)

	ld := loader.New(loader.WithLogger(log))
	fo, err := ld.LoadFull(c.Context, a[0], cfg.Load.CacheSize, cfg.Load.IgnoreUnknownOptions)
	if err != nil {
		return err
	}
	defer fo.Close()

	if err := fo.CompleteColumnFamilies(c.StringSlice("cf"), c.Bool("ignore-unknown-column-families")); err != nil {
		return err
	}

	db := fo.DBOptions.DB
	if c.Bool("create") {
		db.CreateIfMissing = true
		db.CreateMissingColumnFamilies = true
	}

	scfg := storage.DefaultConfig(a[1])
	scfg.InMemory = cfg.Storage.InMemory
	scfg.GCInterval = cfg.Storage.GCInterval
	scfg.GCThreshold = cfg.Storage.GCThreshold

	eng, err := storage.Open(scfg, db, fo.ColumnFamilies, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.Stats(c.Context)
	if err != nil {
		return err
	}

	r := &openReport{
		Dir:          a[1],
		InMemory:     scfg.InMemory,
		TotalKeys:    stats.TotalKeys,
		LSMSize:      stats.LSMSize,
		ValueLogSize: stats.ValueLogSize,
	}
	for _, name := range eng.ColumnFamilies() {
		cf, ok := eng.ColumnFamily(name)
		if !ok {
			continue
		}
		opts := cf.Options()
		r.ColumnFamilies = append(r.ColumnFamilies, openFamily{
			Name:       name,
			ID:         cf.ID(),
			Keys:       stats.Keys[name],
			TTL:        cf.TTL().String(),
			BlockCache: opts.Table.BlockCache.String(),
		})
		opts.Close()
	}
	if err := render(c, r); err != nil {
		return err
	}
	return eng.Close()
}
