package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats data as JSON. Option values are written verbatim,
// without HTML escaping.
type JSONFormatter struct {
	// Compact writes one value per line, for streams of events.
	Compact bool
}

// Format formats data as JSON.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if !f.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}
