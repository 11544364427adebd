// Package resolver resolves JavaScript/TypeScript import specifiers to files.
//
// Resolution runs two explicit steps. The alias step rewrites the specifier
// through the project's path aliases and probes each candidate; if nothing
// exists it yields no answer. The conventional step then resolves the
// original specifier relative to the importing directory, or through
// node_modules for bare specifiers. Both steps share one probing policy:
// the extension list is fixed and ordered, so ".js" beats ".ts" when both
// exist for the same stem.
package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/albertocavalcante/depcrit/internal/js/tsconfig"
	"github.com/albertocavalcante/depcrit/internal/logging"
)

// DefaultExtensions is the probing order used when none is configured.
var DefaultExtensions = []string{".js", ".ts", ".tsx"}

// DefaultManifestCacheSize bounds the number of memoised package manifests.
const DefaultManifestCacheSize = 512

// ErrBuiltin is returned for Node.js core modules that no file provides.
var ErrBuiltin = errors.New("built-in module")

// UnresolvedError is returned when neither step finds a file.
type UnresolvedError struct {
	Specifier string
	BaseDir   string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unable to resolve import %q from %s", e.Specifier, e.BaseDir)
}

// Options configure a Resolver.
type Options struct {
	// Extensions is the ordered probing list. Defaults to DefaultExtensions.
	Extensions []string

	// Aliases is the path-alias configuration. Nil disables the alias step.
	Aliases *tsconfig.Config

	// FS is probed for candidates. Defaults to OSFS.
	FS FS

	// ManifestCacheSize defaults to DefaultManifestCacheSize.
	ManifestCacheSize int

	Logger *zap.Logger
}

// Resolver resolves specifiers. It holds no state besides its configuration
// and the in-run manifest memo, so resolving the same specifier twice gives
// the same answer.
type Resolver struct {
	aliases []aliasEntry
	probe   *prober
	log     *zap.Logger
}

// New returns a Resolver for opts.
func New(opts Options) (*Resolver, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = OSFS{}
	}
	size := opts.ManifestCacheSize
	if size <= 0 {
		size = DefaultManifestCacheSize
	}

	p, err := newProber(fsys, append([]string(nil), exts...), size)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}
	return &Resolver{
		aliases: newAliasTable(opts.Aliases),
		probe:   p,
		log:     logging.OrNop(opts.Logger),
	}, nil
}

// Resolve returns the absolute path of the file spec refers to when imported
// from a file in baseDir.
func (r *Resolver) Resolve(spec, baseDir string) (string, error) {
	if strings.HasPrefix(spec, "node:") {
		return "", fmt.Errorf("%q: %w", spec, ErrBuiltin)
	}

	if path, ok := r.resolveAlias(spec); ok {
		r.log.Debug("resolved through alias", zap.String("specifier", spec), zap.String("path", path))
		return path, nil
	}

	if path, ok := r.resolveConventional(spec, baseDir); ok {
		r.log.Debug("resolved", zap.String("specifier", spec), zap.String("path", path))
		return path, nil
	}

	// A package shadowing a core module name (e.g. the "events" polyfill)
	// resolves above; only a name with no file behind it is a builtin.
	if IsBuiltin(spec) {
		return "", fmt.Errorf("%q: %w", spec, ErrBuiltin)
	}
	return "", &UnresolvedError{Specifier: spec, BaseDir: baseDir}
}

// resolveAlias is the alias step. Relative and absolute specifiers never
// go through aliases.
func (r *Resolver) resolveAlias(spec string) (string, bool) {
	if len(r.aliases) == 0 || isPathSpecifier(spec) {
		return "", false
	}

	for _, e := range r.aliases {
		star, ok := e.match(spec)
		if !ok {
			continue
		}
		for _, target := range e.targets {
			cand := filepath.Clean(strings.Replace(target, "*", filepath.FromSlash(star), 1))
			if path, ok := r.probe.probe(cand); ok {
				return path, true
			}
			r.log.Debug("alias candidate missing", zap.String("specifier", spec), zap.String("pattern", e.pattern), zap.String("candidate", cand))
		}
	}
	return "", false
}

// resolveConventional is the fallback step.
func (r *Resolver) resolveConventional(spec, baseDir string) (string, bool) {
	if isPathSpecifier(spec) {
		p := filepath.FromSlash(spec)
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return r.probe.probe(p)
	}

	name := filepath.FromSlash(spec)
	for dir := baseDir; ; {
		if filepath.Base(dir) != "node_modules" {
			if path, ok := r.probe.probe(filepath.Join(dir, "node_modules", name)); ok {
				return path, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// isPathSpecifier reports whether spec is relative or absolute rather than a
// bare package name.
func isPathSpecifier(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}
