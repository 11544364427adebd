package resolver

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/albertocavalcante/depcrit/internal/js/tsconfig"
)

// aliasEntry is a paths mapping with its targets made absolute.
type aliasEntry struct {
	pattern string
	targets []string
}

// match returns the text the wildcard stands for when spec matches the
// pattern. An exact pattern matches with an empty wildcard.
func (e aliasEntry) match(spec string) (string, bool) {
	star := strings.IndexByte(e.pattern, '*')
	if star < 0 {
		return "", spec == e.pattern
	}
	prefix, suffix := e.pattern[:star], e.pattern[star+1:]
	if len(spec) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

// rank orders patterns: exact patterns first, then wildcard patterns by the
// length of the text before the wildcard.
func (e aliasEntry) rank() (exact bool, prefixLen int) {
	star := strings.IndexByte(e.pattern, '*')
	if star < 0 {
		return true, len(e.pattern)
	}
	return false, star
}

// newAliasTable builds the ordered alias table. When a baseUrl is set, a
// catch-all "*" entry mapping to baseUrl/* is appended unless the
// configuration already declares one, so bare specifiers are also looked up
// under baseUrl.
func newAliasTable(cfg *tsconfig.Config) []aliasEntry {
	if cfg == nil {
		return nil
	}

	var table []aliasEntry
	hasMatchAll := false
	for _, m := range cfg.Paths {
		if m.Pattern == "*" {
			hasMatchAll = true
		}
		e := aliasEntry{pattern: m.Pattern}
		for _, t := range m.Targets {
			e.targets = append(e.targets, absTarget(cfg.PathsBase, t))
		}
		table = append(table, e)
	}
	if cfg.BaseURL != "" && !hasMatchAll {
		table = append(table, aliasEntry{
			pattern: "*",
			targets: []string{filepath.Join(cfg.BaseURL, "*")},
		})
	}

	sort.SliceStable(table, func(i, j int) bool {
		ei, li := table[i].rank()
		ej, lj := table[j].rank()
		if ei != ej {
			return ei
		}
		return li > lj
	})
	return table
}

func absTarget(base, target string) string {
	target = filepath.FromSlash(target)
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(base, target)
}
