// Package jsdeps implements the jsdeps command: print the dependency
// criteria of one JavaScript or TypeScript file as JSON.
package jsdeps

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/albertocavalcante/depcrit/internal/cli"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/depcrit"
	"github.com/albertocavalcante/depcrit/internal/logging"
	"github.com/albertocavalcante/depcrit/internal/version"
)

const tool = "jsdeps"

// Run executes jsdeps with the given arguments.
// Returns exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWithIO(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	var (
		repoFlag     string
		configFlag   string
		tsconfigFlag string
		checkFlag    string
		watchFlag    bool
		indentFlag   bool
		verboseFlag  bool
		versionFlag  bool
	)

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&repoFlag, "repo", "", "repository root (default: repo in config, then $REPO)")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover depcrit.star or depcrit.toml)")
	fs.StringVar(&tsconfigFlag, "tsconfig", "", "alias configuration (default: <repo>/tsconfig.json)")
	fs.StringVar(&checkFlag, "check", "", "compare the output with this JSON file instead of printing it")
	fs.BoolVar(&watchFlag, "watch", false, "re-run whenever the file or its alias configuration changes")
	fs.BoolVar(&indentFlag, "indent", false, "indent the JSON output (default when stdout is a terminal)")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging on stderr")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: jsdeps [flags] <file>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Resolves the imports of a JavaScript or TypeScript file and prints,")
		cli.Writeln(stderr, "for each, the criteria a build graph generator needs to find its target.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Exit codes:")
		cli.Writeln(stderr, "  0  success")
		cli.Writeln(stderr, "  1  error (nothing is printed)")
		cli.Writeln(stderr, "  2  --check found differences")
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
	file := fs.Arg(0)

	env, err := cli.LoadEnv(configFlag, repoFlag)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	log := logging.New(stderr, verboseFlag)
	defer func() { _ = log.Sync() }()
	if env.ConfigPath != "" {
		log.Debug("using config " + env.ConfigPath)
	}

	opts := depcrit.Options{
		Root:     env.Root,
		Config:   env.Config,
		TSConfig: tsconfigFlag,
		Logger:   log,
	}
	indent := indentFlag || cli.IsTerminal(stdout)

	if watchFlag {
		return watch(ctx, opts, file, indent, stdout, stderr)
	}

	out, err := runOnce(ctx, opts, file, indent || checkFlag != "")
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	if checkFlag != "" {
		return check(checkFlag, file, out, stdout, stderr)
	}

	cli.WriteBytes(stdout, append(out, '\n'))
	return cli.ExitOK
}

// runOnce is one complete, independent run: the alias configuration is
// reloaded every time.
func runOnce(ctx context.Context, opts depcrit.Options, file string, indent bool) ([]byte, error) {
	p, err := depcrit.New(opts)
	if err != nil {
		return nil, err
	}
	list, err := p.Run(ctx, file)
	if err != nil {
		return nil, err
	}
	return criteria.Encode(list, indent)
}

// check compares got, indented JSON, with the expected document and prints a
// unified diff when they differ.
func check(expectedPath, file string, got []byte, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(expectedPath)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}
	expected, err := criteria.Decode(data)
	if err != nil {
		return cli.Fail(stderr, tool, fmt.Errorf("%s: %w", expectedPath, err))
	}
	want, err := criteria.Encode(expected, true)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	if string(want) == string(got) {
		return cli.ExitOK
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(want) + "\n"),
		B:        difflib.SplitLines(string(got) + "\n"),
		FromFile: expectedPath,
		ToFile:   file,
		Context:  3,
	})
	cli.Writef(stdout, "%s", diff)
	return cli.ExitWarning
}
