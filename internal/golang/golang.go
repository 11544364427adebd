// Package golang produces criteria for the imports of a Go source file.
//
// Standard-library imports are skipped. An import naming a directory of the
// repository is a first-party library; an import rooted at a module host
// (a first element containing a dot, e.g. github.com) is a third-party
// package fetched into the repository.
package golang

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/albertocavalcante/depcrit/internal/config"
	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/logging"
)

// StdLister returns the import paths of the standard library.
type StdLister func(ctx context.Context) (map[string]bool, error)

// LoadStd lists the standard library with the go command.
func LoadStd(ctx context.Context) (map[string]bool, error) {
	pkgs, err := packages.Load(&packages.Config{Context: ctx, Mode: packages.NeedName}, "std")
	if err != nil {
		return nil, fmt.Errorf("listing standard library: %w", err)
	}
	std := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		std[p.PkgPath] = true
	}
	return std, nil
}

// UnresolvedImportError is returned for an import that is neither in the
// standard library, nor a repository directory, nor a fetchable module.
type UnresolvedImportError struct {
	Import string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("unable to resolve Go import %q", e.Import)
}

// Options configure a Resolver.
type Options struct {
	// Root is the absolute repository root.
	Root string

	// Config defaults to config.DefaultConfig().Go.
	Config *config.GoConfig

	// Std defaults to LoadStd.
	Std StdLister

	Logger *zap.Logger
}

// Resolver classifies Go imports. The standard library is listed once, on
// first use.
type Resolver struct {
	root   string
	cfg    config.GoConfig
	lister StdLister
	std    map[string]bool
	log    *zap.Logger
}

// New returns a Resolver.
func New(opts Options) *Resolver {
	cfg := config.DefaultConfig().Go
	if opts.Config != nil {
		cfg = *opts.Config
	}
	lister := opts.Std
	if lister == nil {
		lister = LoadStd
	}
	return &Resolver{
		root:   filepath.Clean(opts.Root),
		cfg:    cfg,
		lister: lister,
		log:    logging.OrNop(opts.Logger),
	}
}

// Imports returns the distinct import paths of file, sorted.
func Imports(file string, src []byte) ([]string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), file, src, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(f.Imports))
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: bad import %s: %w", file, spec.Path.Value, err)
		}
		seen[p] = true
	}

	imports := make([]string, 0, len(seen))
	for p := range seen {
		imports = append(imports, p)
	}
	sort.Strings(imports)
	return imports, nil
}

// Run returns the criteria for every non-standard import of file. The first
// unresolvable import aborts the run.
func (r *Resolver) Run(ctx context.Context, file string) ([]criteria.Criteria, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	imports, err := Imports(file, src)
	if err != nil {
		return nil, err
	}

	if r.std == nil {
		if r.std, err = r.lister(ctx); err != nil {
			return nil, err
		}
	}

	result := make([]criteria.Criteria, 0, len(imports))
	for _, imp := range imports {
		if r.std[imp] {
			r.log.Debug("skipping standard library", zap.String("import", imp))
			continue
		}
		c, err := r.classify(imp)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *Resolver) classify(imp string) (criteria.Criteria, error) {
	if info, err := os.Stat(filepath.Join(r.root, filepath.FromSlash(imp))); err == nil && info.IsDir() {
		return r.lookup(imp, imp, r.cfg.LibraryRule, "name", "^"+regexp.QuoteMeta(path.Base(imp))+"$"), nil
	}

	host, _, _ := strings.Cut(imp, "/")
	if strings.Contains(host, ".") {
		return r.lookup(imp, r.cfg.ThirdPartyPackage, r.cfg.GetRule, "get", "^"+regexp.QuoteMeta(imp)), nil
	}
	return nil, &UnresolvedImportError{Import: imp}
}

func (r *Resolver) lookup(imp, pkg, rule, arg, pattern string) *criteria.PackageCriteria {
	return &criteria.PackageCriteria{
		ImportID: imp,
		Lookups: []criteria.PackageLookup{{
			Package: pkg,
			Call: criteria.PackageCall{
				ID:    rule,
				Args:  map[string]string{arg: pattern},
				Label: "name",
			},
		}},
	}
}
