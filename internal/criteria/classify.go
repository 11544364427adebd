package criteria

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Layout names the repository directories and rule kinds the classifier
// relies on. Directory prefixes are slash-separated and relative to the
// repository root.
type Layout struct {
	// BuildOutputDir is populated by the build system (e.g. "plz-out").
	BuildOutputDir string

	// ThirdPartyOutputDir holds generated third-party packages. It normally
	// lives inside BuildOutputDir and is checked first.
	ThirdPartyOutputDir string

	// ThirdPartyPackage is the build package declaring third-party packages.
	// Scoped packages are declared in ThirdPartyPackage/@scope.
	ThirdPartyPackage string

	// PackageRule is the rule kind declaring a single third-party package.
	PackageRule string

	// FileCalls are the declaration shapes that may own a first-party file.
	FileCalls []FileCall
}

// Outcome is the classification of one resolved path.
type Outcome int

const (
	// OutcomePackage: a generated third-party package.
	OutcomePackage Outcome = iota
	// OutcomeFile: a first-party source file.
	OutcomeFile
	// OutcomeBuildOutput: an artifact of the build itself; no criteria.
	OutcomeBuildOutput
)

func (o Outcome) String() string {
	switch o {
	case OutcomePackage:
		return "package"
	case OutcomeFile:
		return "file"
	case OutcomeBuildOutput:
		return "build-output"
	}
	return "unknown"
}

// Result is the outcome of classifying one path. Criteria is nil for
// OutcomeBuildOutput.
type Result struct {
	Outcome  Outcome
	Criteria Criteria
}

// OutOfRepositoryError is returned when a resolved path is not under the
// repository root.
type OutOfRepositoryError struct {
	Path string
	Root string
}

func (e *OutOfRepositoryError) Error() string {
	return fmt.Sprintf("resolved path %s is outside the repository %s", e.Path, e.Root)
}

// UnrecognizedPathError is returned for a path inside the third-party output
// directory that does not name a package (e.g. a scope directory with no
// package below it). It is kept apart from the build-output outcome so the two
// cannot be confused.
type UnrecognizedPathError struct {
	Path string
	// Reason names the path shape that was not understood.
	Reason string
}

func (e *UnrecognizedPathError) Error() string {
	return fmt.Sprintf("cannot derive a package name from %s: %s", e.Path, e.Reason)
}

// Classifier maps resolved paths to criteria. The zero value is not usable;
// construct one with NewClassifier.
type Classifier struct {
	root   string
	layout Layout
}

// NewClassifier returns a classifier for the repository at root.
func NewClassifier(root string, layout Layout) *Classifier {
	layout.BuildOutputDir = cleanPrefix(layout.BuildOutputDir)
	layout.ThirdPartyOutputDir = cleanPrefix(layout.ThirdPartyOutputDir)
	layout.ThirdPartyPackage = cleanPrefix(layout.ThirdPartyPackage)
	return &Classifier{root: filepath.Clean(root), layout: layout}
}

// Root returns the repository root.
func (c *Classifier) Root() string { return c.root }

// Relative returns resolved relative to the repository root, slash-separated.
func (c *Classifier) Relative(resolved string) (string, error) {
	rel, err := filepath.Rel(c.root, resolved)
	if err != nil || !filepath.IsLocal(rel) {
		return "", &OutOfRepositoryError{Path: resolved, Root: c.root}
	}
	return filepath.ToSlash(rel), nil
}

// Classify decides how importID, resolved to the absolute path resolved,
// should be declared.
func (c *Classifier) Classify(importID, resolved string) (Result, error) {
	rel, err := c.Relative(resolved)
	if err != nil {
		return Result{}, err
	}

	if rest, ok := cutPathPrefix(rel, c.layout.ThirdPartyOutputDir); ok {
		pc, err := c.packageCriteria(importID, rest)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomePackage, Criteria: pc}, nil
	}

	if _, ok := cutPathPrefix(rel, c.layout.BuildOutputDir); ok {
		return Result{Outcome: OutcomeBuildOutput}, nil
	}

	calls := make([]FileCall, len(c.layout.FileCalls))
	copy(calls, c.layout.FileCalls)
	return Result{
		Outcome: OutcomeFile,
		Criteria: &FileCriteria{
			ImportID: importID,
			Lookup:   FileLookup{File: rel, Calls: calls},
		},
	}, nil
}

// packageCriteria builds the lookup for rest, the path below the third-party
// output directory, e.g. "@foo/bar/lib/index.js" or "graphql-tag/lib/x.js".
func (c *Classifier) packageCriteria(importID, rest string) (*PackageCriteria, error) {
	segs := strings.Split(rest, "/")

	pkg := c.layout.ThirdPartyPackage
	var name string
	if strings.HasPrefix(segs[0], "@") {
		// The last segment is the file itself, so a scoped package needs
		// at least scope/name/file.
		if len(segs) < 3 {
			return nil, &UnrecognizedPathError{
				Path:   path.Join(c.layout.ThirdPartyOutputDir, rest),
				Reason: "scope directory has no package below it",
			}
		}
		pkg = path.Join(pkg, segs[0])
		name = segs[1]
	} else {
		if len(segs) < 2 {
			return nil, &UnrecognizedPathError{
				Path:   path.Join(c.layout.ThirdPartyOutputDir, rest),
				Reason: "file sits directly in the third-party output directory",
			}
		}
		name = segs[0]
	}

	return &PackageCriteria{
		ImportID: importID,
		Lookups: []PackageLookup{{
			Package: pkg,
			Call: PackageCall{
				ID:    c.layout.PackageRule,
				Args:  map[string]string{"name": "^" + regexp.QuoteMeta(name) + "$"},
				Label: "name",
			},
		}},
	}, nil
}

// cutPathPrefix reports whether rel lies under the directory prefix and
// returns the remainder. Matching is by whole path segments, so "plz-out"
// does not match "plz-outside/x".
func cutPathPrefix(rel, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(rel, prefix+"/")
	return rest, ok && rest != ""
}

func cleanPrefix(p string) string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}
