// Package cli provides shared utilities for the depcrit command-line tools.
package cli

// Standard exit codes for depcrit tools.
//
// These follow Unix conventions:
//   - 0: Success
//   - 1: Fatal error (missing argument, unresolved import, parse failure, ...)
//   - 2: The tool completed but the result needs attention
const (
	// ExitOK indicates successful execution with no issues.
	ExitOK = 0

	// ExitError indicates a terminal error. No output was produced.
	ExitError = 1

	// ExitWarning indicates the tool completed but found something to act on:
	//   - jsdeps --check found output that differs from the expected file
	//   - missingdeps found imports whose targets are not listed in deps
	ExitWarning = 2
)
