package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// DisableColor turns colored status lines off.
func DisableColor() {
	color.NoColor = true
}

// Success prints a green status line with a check mark.
func Success(w io.Writer, format string, args ...any) {
	_, _ = green.Fprintf(w, "✓ "+format+"\n", args...)
}

// Failure prints a red status line with a cross.
func Failure(w io.Writer, format string, args ...any) {
	_, _ = red.Fprintf(w, "✗ "+format+"\n", args...)
}

// Warning prints a yellow status line.
func Warning(w io.Writer, format string, args ...any) {
	_, _ = yellow.Fprintf(w, "! "+format+"\n", args...)
}

// Plain prints an uncolored line.
func Plain(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
