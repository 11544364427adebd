package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ErrMissingArgument is returned when a tool is invoked without its required
// positional source file.
var ErrMissingArgument = errors.New("a source file is required")

// Writef writes formatted output to the writer, ignoring write errors.
// There is no reasonable recovery from a broken stdout/stderr pipe and the
// exit code still reflects the outcome of the run.
func Writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Writeln writes a line to the writer, ignoring write errors.
func Writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// WriteBytes writes b to the writer, ignoring write errors.
func WriteBytes(w io.Writer, b []byte) {
	_, _ = w.Write(b)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var errorColor = color.New(color.FgRed, color.Bold)

// Fail prints a terminal error as "<tool>: <message>" and returns ExitError.
// The tool prefix is highlighted when stderr is a terminal.
func Fail(stderr io.Writer, tool string, err error) int {
	prefix := tool + ":"
	if IsTerminal(stderr) {
		prefix = errorColor.Sprint(prefix)
	}
	Writef(stderr, "%s %v\n", prefix, err)
	return ExitError
}
