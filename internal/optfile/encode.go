package optfile

import (
	"io"

	"gopkg.in/ini.v1"

	"github.com/yndnr/kvopts/pkg/options"
)

// FormatVersion is the options_file_version Encode writes.
const FormatVersion = "1.1"

// Encode writes db and every column family as a complete OPTIONS file. All
// options are written, not only the ones that differ from the defaults, so
// the output is stable for a given configuration. Parse accepts the output.
func Encode(w io.Writer, engineVersion string, db options.DBOptions, families []options.Descriptor) error {
	out := ini.Empty(loadOptions)

	version, err := out.NewSection(versionSection)
	if err != nil {
		return err
	}
	version.Comment = "# kvopts options file. Edit with care."
	if _, err := version.NewKey("options_file_version", FormatVersion); err != nil {
		return err
	}
	if engineVersion != "" {
		if _, err := version.NewKey("engine_version", engineVersion); err != nil {
			return err
		}
	}

	base := options.Options{DB: db}
	if err := writeSection(out, dbSection, base.Settings(options.SectionDB)); err != nil {
		return err
	}
	for _, fam := range families {
		quoted := ` "` + fam.Name + `"`
		if err := writeSection(out, cfSection+quoted, fam.Options.Settings(options.SectionCF)); err != nil {
			return err
		}
		if err := writeSection(out, tablePrefix+blockBased+quoted, fam.Options.Settings(options.SectionTable)); err != nil {
			return err
		}
	}

	_, err = out.WriteTo(w)
	return err
}

func writeSection(out *ini.File, name string, settings []options.Setting) error {
	sec, err := out.NewSection(name)
	if err != nil {
		return err
	}
	for _, s := range settings {
		if _, err := sec.NewKey(s.Name, s.Value); err != nil {
			return err
		}
	}
	return nil
}
