package options

import (
	"encoding"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	"github.com/go-viper/mapstructure/v2"

	"github.com/yndnr/kvopts/internal/core/domain"
)

// Section identifies which part of the configuration an option belongs to.
type Section int

const (
	SectionDB Section = iota
	SectionCF
	SectionTable
)

var sectionNames = [...]string{
	SectionDB:    "DBOptions",
	SectionCF:    "CFOptions",
	SectionTable: "TableOptions/BlockBasedTable",
}

// String returns the section header keyword.
func (s Section) String() string {
	if s < 0 || int(s) >= len(sectionNames) {
		return fmt.Sprintf("Section(%d)", int(s))
	}
	return sectionNames[s]
}

// Setting is one raw name=value pair as it appears in an options file.
type Setting struct {
	Section Section
	Name    string
	Value   string
}

// field locates one option inside Options.
type field struct {
	section Section
	name    string
	index   int
}

type registry struct {
	bySection [3][]field
	byName    map[string]field
}

var fields = buildRegistry()

func buildRegistry() *registry {
	r := &registry{byName: make(map[string]field)}
	types := [...]reflect.Type{
		SectionDB:    reflect.TypeOf(DBOptions{}),
		SectionCF:    reflect.TypeOf(ColumnFamilyOptions{}),
		SectionTable: reflect.TypeOf(BlockBasedTableOptions{}),
	}
	for s, t := range types {
		for i := 0; i < t.NumField(); i++ {
			name := t.Field(i).Tag.Get("opt")
			if name == "" || name == "-" {
				continue
			}
			if _, dup := r.byName[name]; dup {
				panic("options: duplicate option name " + name)
			}
			f := field{section: Section(s), name: name, index: i}
			r.bySection[s] = append(r.bySection[s], f)
			r.byName[name] = f
		}
	}
	return r
}

// lookup resolves an option name within a section.
func lookup(section Section, name string) (field, bool) {
	f, ok := fields.byName[name]
	if !ok || f.section != section {
		return field{}, false
	}
	return f, true
}

// Names returns the option names of a section in declaration order.
func Names(section Section) []string {
	fs := fields.bySection[section]
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	return names
}

// Known reports whether name is an option of section.
func Known(section Section, name string) bool {
	_, ok := lookup(section, name)
	return ok
}

func (o *Options) sectionValue(s Section) reflect.Value {
	switch s {
	case SectionDB:
		return reflect.ValueOf(&o.DB).Elem()
	case SectionCF:
		return reflect.ValueOf(&o.CF).Elem()
	default:
		return reflect.ValueOf(&o.Table).Elem()
	}
}

func (o *Options) fieldValue(f field) reflect.Value {
	return o.sectionValue(f.section).Field(f.index)
}

// decodeField converts raw into the option's declared type and stores it.
// The target is left untouched on failure.
func decodeField(target reflect.Value, f field, raw string) error {
	tmp := reflect.New(target.Type())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			scalarHook,
		),
		Result: tmp.Interface(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return domain.ErrInvalidOptionValue.WithDetailsf("%s=%q", f.name, raw).WithCause(err)
	}
	target.Set(tmp.Elem())
	return nil
}

// scalarHook converts option text into numbers and booleans. Numbers are
// decimal only and booleans are one of true, false, 1 or 0. Empty text is
// never a value.
func scalarHook(from, to reflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok || from.Kind() != reflect.String {
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(n).Convert(to).Interface(), nil
	case reflect.Float32, reflect.Float64:
		if s == "" {
			return nil, fmt.Errorf("empty value")
		}
		f, err := strconv.ParseFloat(s, to.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(to).Interface(), nil
	case reflect.Bool:
		switch s {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	default:
		return data, nil
	}
}

func formatValue(v reflect.Value) string {
	if m, ok := v.Interface().(encoding.TextMarshaler); ok {
		b, err := m.MarshalText()
		if err == nil {
			return string(b)
		}
	}
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Set assigns an option by its persisted name, converting value to the
// option's type. Unknown names and unconvertible values are errors and leave
// the options unchanged.
func (o *Options) Set(name, value string) error {
	f, ok := fields.byName[name]
	if !ok {
		return domain.ErrUnknownOption.WithDetails(name)
	}
	return decodeField(o.fieldValue(f), f, value)
}

// SetMany assigns several options at once. Either every assignment succeeds
// or the options are left unchanged. Names are applied in sorted order, so
// the reported error is stable.
func (o *Options) SetMany(values map[string]string) error {
	tmp := *o
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if err := tmp.Set(name, values[name]); err != nil {
			return err
		}
	}
	o.DB, o.CF, o.Table = tmp.DB, tmp.CF, tmp.Table
	return nil
}

// Get returns the persisted text of an option.
func (o *Options) Get(name string) (string, bool) {
	f, ok := fields.byName[name]
	if !ok {
		return "", false
	}
	return formatValue(o.fieldValue(f)), true
}

// Settings lists every option of a section with its current value, in
// declaration order.
func (o *Options) Settings(section Section) []Setting {
	fs := fields.bySection[section]
	out := make([]Setting, 0, len(fs))
	for _, f := range fs {
		out = append(out, Setting{
			Section: section,
			Name:    f.name,
			Value:   formatValue(o.fieldValue(f)),
		})
	}
	return out
}

// ParseDBOptions decodes the settings of a [DBOptions] section on top of the
// defaults. Names outside the section are unknown options; they fail the
// parse unless ignoreUnknown is set, in which case they are skipped.
func ParseDBOptions(settings []Setting, ignoreUnknown bool) (DBOptions, error) {
	o := Default()
	for _, s := range settings {
		f, ok := lookup(SectionDB, s.Name)
		if !ok {
			if ignoreUnknown {
				continue
			}
			return DBOptions{}, domain.ErrUnknownOption.WithDetailsf("%s in %s", s.Name, SectionDB)
		}
		if err := decodeField(o.fieldValue(f), f, s.Value); err != nil {
			return DBOptions{}, err
		}
	}
	return o.DB, nil
}
