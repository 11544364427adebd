// Package missingdeps implements the missingdeps command: report the imports
// of a source file whose targets are not among the declared dependencies of
// the target owning the file.
package missingdeps

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bazelbuild/buildtools/labels"
	"go.uber.org/zap"

	"github.com/albertocavalcante/depcrit/internal/cli"
	"github.com/albertocavalcante/depcrit/internal/config"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/depcrit"
	"github.com/albertocavalcante/depcrit/internal/golang"
	"github.com/albertocavalcante/depcrit/internal/logging"
	"github.com/albertocavalcante/depcrit/internal/targetlookup"
	"github.com/albertocavalcante/depcrit/internal/version"
)

const tool = "missingdeps"

// Run executes missingdeps with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		repoFlag     string
		configFlag   string
		tsconfigFlag string
		criteriaFlag string
		jsonFlag     bool
		verboseFlag  bool
		versionFlag  bool
	)

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&repoFlag, "repo", "", "repository root (default: repo in config, then $REPO)")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover depcrit.star or depcrit.toml)")
	fs.StringVar(&tsconfigFlag, "tsconfig", "", "alias configuration (default: <repo>/tsconfig.json)")
	fs.StringVar(&criteriaFlag, "criteria", "", "read the import criteria from this JSON file (- for stdin) instead of resolving them")
	fs.BoolVar(&jsonFlag, "json", false, "print the report as JSON")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging on stderr")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: missingdeps [flags] <file>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Finds the target owning <file> and reports the targets of its imports")
		cli.Writeln(stderr, "that the owning target does not list as dependencies.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Exit codes:")
		cli.Writeln(stderr, "  0  no missing dependencies")
		cli.Writeln(stderr, "  1  error")
		cli.Writeln(stderr, "  2  missing dependencies found")
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

	file, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	var imports []criteria.Criteria
	switch criteriaFlag {
	case "":
		imports, err = resolve(ctx, env, tsconfigFlag, file, log)
	case "-":
		imports, err = decode(stdin)
	default:
		var f *os.File
		if f, err = os.Open(criteriaFlag); err == nil {
			imports, err = decode(f)
			_ = f.Close()
		}
	}
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	rep, err := check(env, file, imports, log)
	if err != nil {
		return cli.Fail(stderr, tool, err)
	}

	if jsonFlag {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return cli.Fail(stderr, tool, err)
		}
		cli.WriteBytes(stdout, append(data, '\n'))
	} else {
		rep.writeText(stdout)
	}

	if len(rep.Missing) > 0 {
		return cli.ExitWarning
	}
	return cli.ExitOK
}

// resolve produces the import criteria of file with the resolver for its
// language.
func resolve(ctx context.Context, env *cli.Env, tsconfig, file string, log *zap.Logger) ([]criteria.Criteria, error) {
	if isGo(file) {
		return golang.New(golang.Options{Root: env.Root, Config: &env.Config.Go, Logger: log}).Run(ctx, file)
	}
	p, err := depcrit.New(depcrit.Options{Root: env.Root, Config: env.Config, TSConfig: tsconfig, Logger: log})
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, file)
}

func decode(r io.Reader) ([]criteria.Criteria, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return criteria.Decode(data)
}

func isGo(file string) bool { return filepath.Ext(file) == ".go" }

// report is the outcome of one check.
type report struct {
	Target   string          `json:"target"`
	Declared []string        `json:"declared"`
	Missing  []missingImport `json:"missing"`
}

type missingImport struct {
	Import string `json:"import"`
	Target string `json:"target"`
}

// check finds the target owning file and every import's target, and lists
// the imports whose target is neither declared nor the owning target itself.
// Any criteria without a matching target is an error.
func check(env *cli.Env, file string, imports []criteria.Criteria, log *zap.Logger) (*report, error) {
	rel, err := criteria.NewClassifier(env.Root, criteria.Layout{}).Relative(file)
	if err != nil {
		return nil, err
	}
	rules := env.Config.JS.FileRules
	if isGo(file) {
		rules = env.Config.Go.FileRules
	}
	own := &criteria.FileCriteria{
		Lookup: criteria.FileLookup{File: rel, Calls: config.FileCalls(rules)},
	}

	ix := targetlookup.NewIndex(env.Root, env.Config.BuildFiles, log)
	src, err := ix.Find(own)
	if err != nil {
		return nil, fmt.Errorf("finding the target of %s: %w", rel, err)
	}

	declared := make(map[labels.Label]bool, len(src.Deps))
	rep := &report{Target: src.Label.Format(), Declared: []string{}, Missing: []missingImport{}}
	for _, d := range src.Deps {
		declared[d] = true
		rep.Declared = append(rep.Declared, d.Format())
	}

	for _, c := range imports {
		m, err := ix.Find(c)
		if err != nil {
			return nil, fmt.Errorf("finding the target of import %q: %w", c.Import(), err)
		}
		log.Debug("import target", zap.String("import", c.Import()), zap.String("target", m.Label.Format()))
		if m.Label == src.Label || declared[m.Label] {
			continue
		}
		rep.Missing = append(rep.Missing, missingImport{Import: c.Import(), Target: m.Label.Format()})
	}
	sort.Slice(rep.Missing, func(i, j int) bool { return rep.Missing[i].Import < rep.Missing[j].Import })
	return rep, nil
}

func (r *report) writeText(w io.Writer) {
	cli.Writef(w, "# Declared dependencies of %s:\n", r.Target)
	for _, d := range r.Declared {
		cli.Writeln(w, d)
	}

	if len(r.Missing) == 0 {
		cli.Writeln(w)
		cli.Writeln(w, "# No missing dependencies.")
		return
	}

	seen := make(map[string]bool)
	var missing []labels.Label
	for _, m := range r.Missing {
		if !seen[m.Target] {
			seen[m.Target] = true
			missing = append(missing, labels.Parse(m.Target))
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Format() < missing[j].Format() })

	cli.Writeln(w)
	cli.Writef(w, "# Missing dependencies of %s:\n", r.Target)
	cli.Writeln(w, targetlookup.FormatDeps("deps", missing))
}
