// Package optfile reads and writes the persisted engine OPTIONS file.
//
// The file is section based:
//
//	[Version]
//	  options_file_version=1.1
//	[DBOptions]
//	  create_if_missing=true
//	[CFOptions "default"]
//	  write_buffer_size=67108864
//	[TableOptions/BlockBasedTable "default"]
//	  block_size=4096
//
// There is exactly one [DBOptions] section and it precedes every column
// family. The first [CFOptions] section is "default"; column family names are
// unique. A [TableOptions/<factory> "name"] section belongs to the CFOptions
// section directly before it and carries the same name.
package optfile

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/yndnr/kvopts/internal/core/domain"
	"github.com/yndnr/kvopts/pkg/env"
	"github.com/yndnr/kvopts/pkg/options"
)

// Section header keywords.
const (
	versionSection = "Version"
	dbSection      = "DBOptions"
	cfSection      = "CFOptions"
	tablePrefix    = "TableOptions/"
	blockBased     = "BlockBasedTable"
)

// SupportedMajorVersion is the highest options_file_version major number
// this package reads.
const SupportedMajorVersion = 1

// File is the parsed content of an OPTIONS file. Every value in it has
// already been converted and validated.
type File struct {
	FormatVersion string
	EngineVersion string
	DB            options.DBOptions
	Families      []options.NamedOverride
}

var loadOptions = ini.LoadOptions{
	AllowNonUniqueSections: true,
	IgnoreInlineComment:    true,
	IgnoreContinuation:     true,
	KeyValueDelimiters:     "=",
}

// Read loads and parses the file at path through e.
func Read(e env.Env, path string, ignoreUnknown bool) (*File, error) {
	data, err := e.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrOptionsIO.WithDetailsf("%s: no such file", path).WithCause(err)
		}
		return nil, domain.ErrOptionsIO.WithDetails(path).WithCause(err)
	}
	f, err := Parse(data, ignoreUnknown)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Parse converts OPTIONS text into a File. Unknown option names, including
// the options of an unsupported table factory, fail with
// domain.ErrUnknownOption unless ignoreUnknown is set.
func Parse(data []byte, ignoreUnknown bool) (*File, error) {
	raw, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, domain.ErrOptionsParse.WithCause(err)
	}

	p := parser{ignoreUnknown: ignoreUnknown, names: make(map[string]bool)}
	for _, sec := range raw.Sections() {
		if err := p.section(sec); err != nil {
			return nil, err
		}
	}
	return p.finish()
}

type family struct {
	name     string
	settings []options.Setting
	table    bool
}

type parser struct {
	ignoreUnknown bool

	version    string
	engine     string
	hasVersion bool
	hasDB      bool
	db         []options.Setting
	families   []*family
	names      map[string]bool
}

func (p *parser) section(sec *ini.Section) error {
	name := sec.Name()
	if name == ini.DefaultSection {
		if len(sec.Keys()) > 0 {
			return domain.ErrOptionsParse.WithDetailsf("option %q outside of any section", sec.Keys()[0].Name())
		}
		return nil
	}

	kind, arg, quoted := splitHeader(name)
	switch {
	case kind == versionSection && !quoted:
		return p.versionSection(sec)

	case kind == dbSection && !quoted:
		if p.hasDB {
			return domain.ErrOptionsParse.WithDetails("duplicate [DBOptions] section")
		}
		if len(p.families) > 0 {
			return domain.ErrOptionsParse.WithDetails("[DBOptions] must precede every column family")
		}
		p.hasDB = true
		p.db = settings(options.SectionDB, sec)
		return nil

	case kind == cfSection && quoted:
		if !p.hasDB {
			return domain.ErrOptionsParse.WithDetails("[DBOptions] must precede every column family")
		}
		if len(p.families) == 0 && arg != options.DefaultColumnFamily {
			return domain.ErrOptionsParse.WithDetailsf("first column family must be %q, got %q", options.DefaultColumnFamily, arg)
		}
		if p.names[arg] {
			return domain.ErrOptionsParse.WithDetailsf("duplicate column family %q", arg)
		}
		p.names[arg] = true
		p.families = append(p.families, &family{name: arg, settings: settings(options.SectionCF, sec)})
		return nil

	case strings.HasPrefix(kind, tablePrefix) && quoted:
		return p.tableSection(sec, strings.TrimPrefix(kind, tablePrefix), arg)

	default:
		return domain.ErrOptionsParse.WithDetailsf("unexpected section [%s]", name)
	}
}

func (p *parser) versionSection(sec *ini.Section) error {
	if p.hasVersion {
		return domain.ErrOptionsParse.WithDetails("duplicate [Version] section")
	}
	p.hasVersion = true
	for _, k := range sec.Keys() {
		switch k.Name() {
		case "options_file_version":
			p.version = k.Value()
		case "rocksdb_version", "engine_version":
			p.engine = k.Value()
		}
	}
	if p.version == "" {
		return domain.ErrOptionsParse.WithDetails("options_file_version is missing")
	}
	major, _, _ := strings.Cut(p.version, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return domain.ErrOptionsParse.WithDetailsf("invalid options_file_version %q", p.version)
	}
	if n > SupportedMajorVersion {
		return domain.ErrOptionsParse.WithDetailsf("unsupported options_file_version %q", p.version)
	}
	return nil
}

func (p *parser) tableSection(sec *ini.Section, factory, cf string) error {
	if len(p.families) == 0 {
		return domain.ErrOptionsParse.WithDetailsf("[%s] before any column family", sec.Name())
	}
	last := p.families[len(p.families)-1]
	if last.name != cf {
		return domain.ErrOptionsParse.WithDetailsf("[%s] does not follow [CFOptions %q]", sec.Name(), cf)
	}
	if last.table {
		return domain.ErrOptionsParse.WithDetailsf("duplicate table options for column family %q", cf)
	}
	last.table = true
	if factory != blockBased {
		if p.ignoreUnknown {
			return nil
		}
		return domain.ErrUnknownOption.WithDetailsf("table factory %q", factory)
	}
	last.settings = append(last.settings, settings(options.SectionTable, sec)...)
	return nil
}

func (p *parser) finish() (*File, error) {
	if !p.hasVersion {
		return nil, domain.ErrOptionsParse.WithDetails("missing [Version] section")
	}
	if !p.hasDB {
		return nil, domain.ErrOptionsParse.WithDetails("missing [DBOptions] section")
	}
	if len(p.families) == 0 {
		return nil, domain.ErrOptionsParse.WithDetailsf("missing [CFOptions %q] section", options.DefaultColumnFamily)
	}

	db, err := options.ParseDBOptions(p.db, p.ignoreUnknown)
	if err != nil {
		return nil, err
	}
	f := &File{
		FormatVersion: p.version,
		EngineVersion: p.engine,
		DB:            db,
		Families:      make([]options.NamedOverride, 0, len(p.families)),
	}
	for _, fam := range p.families {
		ov, err := options.ParseOverride(fam.settings, p.ignoreUnknown)
		if err != nil {
			return nil, fmt.Errorf("column family %q: %w", fam.name, err)
		}
		f.Families = append(f.Families, options.NamedOverride{Name: fam.name, Override: ov})
	}
	return f, nil
}

// splitHeader splits `Kind "arg"` into its parts.
func splitHeader(name string) (kind, arg string, quoted bool) {
	kind, rest, found := strings.Cut(name, " ")
	if !found {
		return name, "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return name, "", false
	}
	return kind, rest[1 : len(rest)-1], true
}

func settings(s options.Section, sec *ini.Section) []options.Setting {
	keys := sec.Keys()
	out := make([]options.Setting, 0, len(keys))
	for _, k := range keys {
		out = append(out, options.Setting{Section: s, Name: k.Name(), Value: k.Value()})
	}
	return out
}
