package loader

import (
	"context"
	"slices"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/pkg/cache"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/options"
)

// FullOptions is a loaded file in the shape a database open call wants: the
// database options and a plain, caller-owned list of column families.
type FullOptions struct {
	DBOptions      *options.Options
	ColumnFamilies []options.Descriptor
}

// LoadFull loads the file at path from the host filesystem with the default
// loader. See (*Loader).LoadFull.
func LoadFull(path string, cacheSize int64, ignoreUnknown bool) (*FullOptions, error) {
	return defaultLoader.LoadFull(context.Background(), path, cacheSize, ignoreUnknown)
}

// LoadFull loads the file at path from the host filesystem. A positive
// cacheSize creates an LRU block cache of that many bytes shared by every
// column family; otherwise the null cache is used.
func (l *Loader) LoadFull(ctx context.Context, path string, cacheSize int64, ignoreUnknown bool) (*FullOptions, error) {
	c := cache.Null()
	if cacheSize > 0 {
		var err error
		if c, err = cache.NewLRU(cacheSize); err != nil {
			return nil, err
		}
	}
	defer c.Release()

	res, err := l.Load(ctx, path, env.Default(), ignoreUnknown, c)
	if err != nil {
		return nil, err
	}
	defer res.Descriptors.Close()

	return &FullOptions{
		DBOptions:      res.Options,
		ColumnFamilies: res.Descriptors.Copy(),
	}, nil
}

// Names returns the column family names in order.
func (fo *FullOptions) Names() []string {
	names := make([]string, len(fo.ColumnFamilies))
	for i, cf := range fo.ColumnFamilies {
		names[i] = cf.Name
	}
	return names
}

// CompleteColumnFamilies reconciles the loaded column families with the
// ones the caller intends to open, names.
//
// A column family in the file that is neither "default" nor in names is an
// error unless ignoreUnknown is set; it is kept either way. A missing
// "default" is inserted first with a clone of the database options, not
// with fresh defaults: it keeps the file's [DBOptions] values and shares the
// database options' block cache. Every name not
// yet present is appended with a copy of the "default" options. names must
// not contain "default". On error nothing is changed.
func (fo *FullOptions) CompleteColumnFamilies(names []string, ignoreUnknown bool) error {
	def := -1
	for i, cf := range fo.ColumnFamilies {
		if cf.Name == options.DefaultColumnFamily {
			def = i
			continue
		}
		if !ignoreUnknown && !slices.Contains(names, cf.Name) {
			return domain.ErrUnknownColumnFamily.WithDetailsf("an unknown column family named %q", cf.Name)
		}
	}
	if slices.Contains(names, options.DefaultColumnFamily) {
		return domain.ErrReservedColumnFamily.WithDetailsf("don't name a user-defined column family as %q", options.DefaultColumnFamily)
	}

	if def < 0 {
		fo.ColumnFamilies = slices.Insert(fo.ColumnFamilies, 0, options.Descriptor{
			Name:    options.DefaultColumnFamily,
			Options: fo.DBOptions.Clone(),
		})
		def = 0
	}
	defOpts := fo.ColumnFamilies[def].Options
	for _, name := range names {
		if slices.ContainsFunc(fo.ColumnFamilies, func(d options.Descriptor) bool { return d.Name == name }) {
			continue
		}
		fo.ColumnFamilies = append(fo.ColumnFamilies, options.Descriptor{Name: name, Options: defOpts.Clone()})
	}
	return nil
}

// Close releases the database options and every column family's options.
func (fo *FullOptions) Close() {
	fo.DBOptions.Close()
	for _, cf := range fo.ColumnFamilies {
		cf.Options.Close()
	}
	fo.ColumnFamilies = nil
}
