// Package godeps implements the godeps command: print the dependency
// criteria of one Go file as JSON.
package godeps

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/albertocavalcante/depcrit/internal/cli"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/golang"
	"github.com/albertocavalcante/depcrit/internal/logging"
	"github.com/albertocavalcante/depcrit/internal/version"
)

const tool = "godeps"

// Run executes godeps with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	return runWithStd(ctx, args, nil, stdout, stderr)
}

// runWithStd lets tests substitute the standard library listing.
func runWithStd(ctx context.Context, args []string, std golang.StdLister, stdout, stderr io.Writer) int {
	var (
		repoFlag    string
		configFlag  string
		indentFlag  bool
		verboseFlag bool
		versionFlag bool
	)

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&repoFlag, "repo", "", "repository root (default: repo in config, then $REPO)")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover depcrit.star or depcrit.toml)")
	fs.BoolVar(&indentFlag, "indent", false, "indent the JSON output (default when stdout is a terminal)")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging on stderr")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: godeps [flags] <file.go>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Prints the criteria locating the build target of every")
		cli.Writeln(stderr, "non-standard-library import of a Go file.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "%s %s\n", tool, version.String())
		return cli.ExitOK
	}

	switch fs.NArg() {
	case 0:
		fs.Usage()
		return cli.Fail(stderr, tool, cli.ErrMissingArgument)
	case 1:
	default:
		return cli.Fail(stderr, tool, fmt.Errorf("only one file argument allowed, got %d", fs.NArg()))
	}

	env, err := cli.LoadEnv(configFlag, repoFlag)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	log := logging.New(stderr, verboseFlag)
	defer func() { _ = log.Sync() }()

	r := golang.New(golang.Options{
		Root:   env.Root,
		Config: &env.Config.Go,
		Std:    std,
		Logger: log,
	})
	list, err := r.Run(ctx, fs.Arg(0))
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	out, err := criteria.Encode(list, indentFlag || cli.IsTerminal(stdout))
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}
	cli.WriteBytes(stdout, append(out, '\n'))
	return cli.ExitOK
}
