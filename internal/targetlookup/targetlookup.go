// Package targetlookup finds the build targets that satisfy criteria by
// reading BUILD files directly.
package targetlookup

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bazelbuild/buildtools/build"
	"github.com/bazelbuild/buildtools/labels"
	"go.uber.org/zap"

	"github.com/albertocavalcante/depcrit/internal/criteria"
	"github.com/albertocavalcante/depcrit/internal/logging"
)

// ErrNoMatch is returned when no rule satisfies a criteria.
var ErrNoMatch = errors.New("no matching build target")

// DefaultBuildFiles are the BUILD file names tried in each package.
var DefaultBuildFiles = []string{"BUILD", "BUILD.plz", "BUILD.bazel"}

// Match is the rule a criteria resolved to.
type Match struct {
	Label labels.Label
	Rule  *build.Rule

	// Deps are the rule's declared dependencies, made absolute.
	Deps []labels.Label
}

// Index reads BUILD files under a repository root. Parsed files are kept for
// the lifetime of the index.
type Index struct {
	root       string
	buildFiles []string
	files      map[string]*build.File
	log        *zap.Logger
}

// NewIndex returns an index of the repository at root. buildFiles defaults
// to DefaultBuildFiles.
func NewIndex(root string, buildFiles []string, logger *zap.Logger) *Index {
	if len(buildFiles) == 0 {
		buildFiles = DefaultBuildFiles
	}
	return &Index{
		root:       filepath.Clean(root),
		buildFiles: buildFiles,
		files:      make(map[string]*build.File),
		log:        logging.OrNop(logger),
	}
}

// Package returns the parsed BUILD file of pkg, a slash-separated path
// relative to the root, or nil if pkg has none.
func (ix *Index) Package(pkg string) (*build.File, error) {
	if f, ok := ix.files[pkg]; ok {
		return f, nil
	}

	dir := filepath.Join(ix.root, filepath.FromSlash(pkg))
	for _, name := range ix.buildFiles {
		p := filepath.Join(dir, name)
		// A directory named like a BUILD file is not one.
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		f, err := build.ParseBuild(p, data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		ix.log.Debug("parsed build file", zap.String("path", p), zap.Int("rules", len(f.Rules(""))))
		ix.files[pkg] = f
		return f, nil
	}

	ix.files[pkg] = nil
	return nil, nil
}

// OwningPackage returns the nearest package containing file, a
// slash-separated path relative to the root.
func (ix *Index) OwningPackage(file string) (string, error) {
	for dir := path.Dir(file); ; dir = path.Dir(dir) {
		if dir == "." {
			dir = ""
		}
		f, err := ix.Package(dir)
		if err != nil {
			return "", err
		}
		if f != nil {
			return dir, nil
		}
		if dir == "" {
			return "", fmt.Errorf("%s: %w: no package owns the file", file, ErrNoMatch)
		}
	}
}

// Find returns the first rule satisfying c.
func (ix *Index) Find(c criteria.Criteria) (*Match, error) {
	switch c := c.(type) {
	case *criteria.FileCriteria:
		return ix.findFile(c)
	case *criteria.PackageCriteria:
		return ix.findPackage(c)
	}
	return nil, fmt.Errorf("unsupported criteria %T", c)
}

// findFile matches rules in declaration order against each accepted call
// shape, looking for the file in the shape's sources attribute.
func (ix *Index) findFile(c *criteria.FileCriteria) (*Match, error) {
	pkg, err := ix.OwningPackage(c.Lookup.File)
	if err != nil {
		return nil, err
	}
	f, err := ix.Package(pkg)
	if err != nil {
		return nil, err
	}
	rel := c.Lookup.File
	if pkg != "" {
		rel = strings.TrimPrefix(rel, pkg+"/")
	}

	for _, rule := range f.Rules("") {
		for _, call := range c.Lookup.Calls {
			if call.ID != rule.Kind() || !contains(attrValues(rule, call.Srcs), rel) {
				continue
			}
			return ix.match(pkg, rule, call.Label, call.Deps)
		}
	}
	return nil, fmt.Errorf("%s: %w", c.Lookup.File, ErrNoMatch)
}

// findPackage tries each lookup in order; a rule matches when it has the
// call kind and every argument pattern matches its attribute.
func (ix *Index) findPackage(c *criteria.PackageCriteria) (*Match, error) {
	for _, lookup := range c.Lookups {
		f, err := ix.Package(lookup.Package)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}

		patterns := make(map[string]*regexp.Regexp, len(lookup.Call.Args))
		for attr, expr := range lookup.Call.Args {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("%s: bad pattern for %s: %w", c.ImportID, attr, err)
			}
			patterns[attr] = re
		}

		for _, rule := range f.Rules(lookup.Call.ID) {
			if matchesAll(rule, patterns) {
				return ix.match(lookup.Package, rule, lookup.Call.Label, "deps")
			}
		}
	}
	return nil, fmt.Errorf("%s: %w", c.ImportID, ErrNoMatch)
}

func (ix *Index) match(pkg string, rule *build.Rule, labelAttr, depsAttr string) (*Match, error) {
	name := rule.AttrString(labelAttr)
	if name == "" {
		return nil, fmt.Errorf("//%s: %s rule has no %s attribute", pkg, rule.Kind(), labelAttr)
	}

	m := &Match{
		Label: labels.Label{Package: pkg, Target: name},
		Rule:  rule,
	}
	for _, dep := range attrValues(rule, depsAttr) {
		m.Deps = append(m.Deps, labels.ParseRelative(dep, pkg))
	}
	return m, nil
}

// attrValues returns a string attribute as a single value, or the string
// entries of a list attribute.
func attrValues(rule *build.Rule, attr string) []string {
	if attr == "" {
		return nil
	}
	if s, ok := rule.Attr(attr).(*build.StringExpr); ok {
		return []string{s.Value}
	}
	return rule.AttrStrings(attr)
}

func matchesAll(rule *build.Rule, patterns map[string]*regexp.Regexp) bool {
	for attr, re := range patterns {
		matched := false
		for _, v := range attrValues(rule, attr) {
			if re.MatchString(v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// FormatDeps renders labels as a BUILD attribute assignment, e.g.
//
//	deps = [
//	    "//src/core:core",
//	]
func FormatDeps(attr string, deps []labels.Label) string {
	list := &build.ListExpr{ForceMultiLine: true}
	for _, l := range deps {
		list.List = append(list.List, &build.StringExpr{Value: l.Format()})
	}
	return build.FormatString(&build.AssignExpr{
		LHS: &build.Ident{Name: attr},
		Op:  "=",
		RHS: list,
	})
}
