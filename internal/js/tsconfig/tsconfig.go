// Package tsconfig loads the path-alias configuration of a TypeScript
// project: compilerOptions.baseUrl and compilerOptions.paths, following
// "extends" chains.
package tsconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// ErrLoad wraps every failure to load an alias configuration.
var ErrLoad = errors.New("loading alias configuration")

// Mapping is one entry of compilerOptions.paths: a pattern with at most one
// "*" and the target patterns it rewrites to.
type Mapping struct {
	Pattern string
	Targets []string
}

// Config is the resolved alias configuration of one tsconfig file.
type Config struct {
	// Path is the file that was loaded.
	Path string

	// BaseURL is the absolute compilerOptions.baseUrl, or "" if no file in the
	// extends chain declares one.
	BaseURL string

	// PathsBase is the directory non-absolute path targets are joined to:
	// BaseURL when set, otherwise the directory of the file declaring paths.
	PathsBase string

	// Paths are the mappings in declaration order.
	Paths []Mapping
}

type rawConfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string         `json:"baseUrl"`
		Paths   json.RawMessage `json:"paths"`
	} `json:"compilerOptions"`
}

// Load reads the tsconfig at path. Comments and trailing commas are accepted.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	cfg := &Config{Path: abs}
	var (
		haveBase  bool
		havePaths bool
		seen      = map[string]bool{}
	)

	// Walk from the child to the root of the extends chain; the first file
	// declaring a field wins.
	for file := abs; file != ""; {
		if seen[file] {
			return nil, fmt.Errorf("%w: %s: extends cycle through %s", ErrLoad, abs, file)
		}
		seen[file] = true

		raw, err := readRaw(file)
		if err != nil {
			return nil, err
		}
		dir := filepath.Dir(file)

		if !haveBase && raw.CompilerOptions.BaseURL != nil {
			haveBase = true
			cfg.BaseURL = joinAbs(dir, *raw.CompilerOptions.BaseURL)
		}
		if !havePaths && len(raw.CompilerOptions.Paths) > 0 && string(raw.CompilerOptions.Paths) != "null" {
			havePaths = true
			paths, err := decodePaths(raw.CompilerOptions.Paths)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: compilerOptions.paths: %w", ErrLoad, file, err)
			}
			cfg.Paths = paths
			cfg.PathsBase = dir
		}

		next, err := extendsTarget(raw.Extends, dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoad, file, err)
		}
		file = next
	}

	if cfg.BaseURL != "" {
		cfg.PathsBase = cfg.BaseURL
	}
	return cfg, nil
}

func readRaw(file string) (*rawConfig, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, file, err)
	}
	var raw rawConfig
	if err := json.Unmarshal(std, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, file, err)
	}
	return &raw, nil
}

// extendsTarget returns the file named by "extends", or "" when absent.
// Only the first entry of an array form is followed.
func extendsTarget(raw json.RawMessage, dir string) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return "", fmt.Errorf("extends must be a string or list of strings")
		}
		if len(names) == 0 {
			return "", nil
		}
		name = names[0]
	}

	if strings.HasPrefix(name, ".") || filepath.IsAbs(name) {
		file := joinAbs(dir, name)
		if filepath.Ext(file) != ".json" {
			file += ".json"
		}
		return file, nil
	}

	// A package: node_modules/<name>, or node_modules/<name>/tsconfig.json.
	for d := dir; ; {
		base := filepath.Join(d, "node_modules", filepath.FromSlash(name))
		for _, cand := range []string{base, base + ".json", filepath.Join(base, "tsconfig.json")} {
			if info, err := os.Stat(cand); err == nil && info.Mode().IsRegular() {
				return cand, nil
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", fmt.Errorf("extends %q: not found in node_modules", name)
		}
		d = parent
	}
}

// decodePaths decodes the paths object keeping the key order.
func decodePaths(raw json.RawMessage) ([]Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("must be an object")
	}

	var out []Mapping
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		pattern := tok.(string)
		if strings.Count(pattern, "*") > 1 {
			return nil, fmt.Errorf("pattern %q can have at most one '*'", pattern)
		}

		var targets []string
		if err := dec.Decode(&targets); err != nil {
			return nil, fmt.Errorf("pattern %q: targets must be a list of strings", pattern)
		}
		for _, t := range targets {
			if strings.Count(t, "*") > 1 {
				return nil, fmt.Errorf("target %q can have at most one '*'", t)
			}
		}
		out = append(out, Mapping{Pattern: pattern, Targets: targets})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

func joinAbs(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
