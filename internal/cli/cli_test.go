package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestExitCodes(t *testing.T) {
	if ExitOK != 0 {
		t.Errorf("ExitOK = %d, want 0", ExitOK)
	}
	if ExitError != 1 {
		t.Errorf("ExitError = %d, want 1", ExitError)
	}
	if ExitWarning != 2 {
		t.Errorf("ExitWarning = %d, want 2", ExitWarning)
	}
}

func TestWriteln(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "no args", args: nil, want: "\n"},
		{name: "single arg", args: []any{"hello"}, want: "hello\n"},
		{name: "multiple args", args: []any{"hello", "world", 42}, want: "hello world 42\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			Writeln(&buf, tc.args...)
			if got := buf.String(); got != tc.want {
				t.Errorf("Writeln() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFail(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("loading: %w", ErrMissingArgument)

	code := Fail(&buf, "jsdeps", err)

	if code != ExitError {
		t.Errorf("Fail() = %d, want %d", code, ExitError)
	}
	want := "jsdeps: loading: a source file is required\n"
	if got := buf.String(); got != want {
		t.Errorf("Fail() wrote %q, want %q", got, want)
	}
	if !errors.Is(err, ErrMissingArgument) {
		t.Error("wrapped error lost ErrMissingArgument identity")
	}
}

func TestIsTerminal_Buffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true, want false")
	}
}
