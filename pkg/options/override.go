package options

import (
	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/pkg/cache"
)

// Override is the validated, sparse set of column family and table fields a
// file declares for one column family. Only the named fields take part in a
// merge; every other field is inherited from the base configuration.
type Override struct {
	values Options
	set    []field
}

// NamedOverride pairs a column family name with its override.
type NamedOverride struct {
	Name     string
	Override Override
}

// ParseOverride converts the settings of a column family's CFOptions and
// TableOptions sections into an Override. DB options are not valid here.
// Unknown names fail unless ignoreUnknown is set; a later setting of the
// same name replaces an earlier one.
func ParseOverride(settings []Setting, ignoreUnknown bool) (Override, error) {
	var ov Override
	seen := make(map[string]bool, len(settings))
	for _, s := range settings {
		f, ok := lookup(s.Section, s.Name)
		if !ok || f.section == SectionDB {
			if ignoreUnknown {
				continue
			}
			return Override{}, domain.ErrUnknownOption.WithDetailsf("%s in %s", s.Name, s.Section)
		}
		if err := decodeField(ov.values.fieldValue(f), f, s.Value); err != nil {
			return Override{}, err
		}
		if seen[f.name] {
			continue
		}
		seen[f.name] = true
		ov.set = append(ov.set, f)
	}
	return ov, nil
}

// Len returns the number of overridden fields.
func (ov Override) Len() int {
	return len(ov.set)
}

// Keys returns the overridden option names in file order.
func (ov Override) Keys() []string {
	keys := make([]string, len(ov.set))
	for i, f := range ov.set {
		keys[i] = f.name
	}
	return keys
}

// Merge returns a new configuration equal to base with the override's
// fields applied on top. It never fails: the override was validated when it
// was parsed. Merging an empty override yields a configuration equal to
// base. When the merged table options disable the block cache, the result
// holds no cache reference.
func Merge(base *Options, ov Override) *Options {
	merged := base.Clone()
	for _, f := range ov.set {
		merged.fieldValue(f).Set(ov.values.fieldValue(f))
	}
	if merged.Table.NoBlockCache {
		merged.Table.BlockCache.Release()
		merged.Table.BlockCache = cache.Null()
	}
	return merged
}
