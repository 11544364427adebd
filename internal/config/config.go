// Package config provides configuration loading for depcrit tools.
//
// Two formats are supported:
//   - depcrit.star: Starlark, a configure() function returning a dict
//   - depcrit.toml: declarative TOML
//
// Files are discovered by walking up from the start directory to the git
// root. The DEPCRIT_CONFIG environment variable overrides discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/depcrit/internal/criteria"
)

// Config file names in priority order.
const (
	ConfigStar = "depcrit.star"
	ConfigTOML = "depcrit.toml"
)

// EnvConfig is the environment variable for specifying the config file path.
const EnvConfig = "DEPCRIT_CONFIG"

// EnvRepo is the environment variable holding the repository root.
const EnvRepo = "REPO"

// DefaultTSConfig is the alias configuration file, relative to the repository root.
const DefaultTSConfig = "tsconfig.json"

var (
	// ErrConfigLoad wraps every failure to load tool or alias configuration.
	ErrConfigLoad = errors.New("config load failure")

	// ErrConflict is returned when multiple config files exist in the same directory.
	ErrConflict = errors.New("multiple config files found in the same directory; use only one")

	// ErrNoRepo is returned when no repository root was supplied.
	ErrNoRepo = errors.New("repository root not set (use --repo, repo in config, or $" + EnvRepo + ")")
)

// Config is the depcrit tool configuration.
type Config struct {
	// Repo is the repository root. Usually supplied through $REPO instead.
	Repo string `toml:"repo"`

	// TSConfig is the alias configuration path, relative to Repo.
	TSConfig string `toml:"tsconfig"`

	// Extensions is the ordered list of probed module extensions.
	Extensions []string `toml:"extensions"`

	// BuildFiles are the BUILD file names recognised by target lookup.
	BuildFiles []string `toml:"build_files"`

	JS JSConfig `toml:"js"`
	Go GoConfig `toml:"go"`
}

// JSConfig describes how JavaScript dependencies map onto build declarations.
type JSConfig struct {
	// BuildOutputDir is the directory the build system writes into.
	BuildOutputDir string `toml:"build_output_dir"`

	// ThirdPartyOutputDir is where generated third-party packages live.
	ThirdPartyOutputDir string `toml:"third_party_output_dir"`

	// ThirdPartyPackage is the build package declaring third-party packages.
	ThirdPartyPackage string `toml:"third_party_package"`

	// PackageRule is the rule kind declaring one third-party package.
	PackageRule string `toml:"package_rule"`

	// FileRules are the declaration shapes that may own a first-party file,
	// in preference order.
	FileRules []FileRule `toml:"file_rules"`
}

// FileRule is one declaration shape for a first-party file.
type FileRule struct {
	ID    string `toml:"id"`
	Srcs  string `toml:"srcs"`
	Deps  string `toml:"deps"`
	Label string `toml:"label"`
}

// GoConfig describes how Go imports map onto build declarations.
type GoConfig struct {
	ThirdPartyPackage string     `toml:"third_party_package"`
	GetRule           string     `toml:"get_rule"`
	LibraryRule       string     `toml:"library_rule"`
	FileRules         []FileRule `toml:"file_rules"`
}

// DefaultConfig returns the configuration for a Please repository.
func DefaultConfig() *Config {
	return &Config{
		TSConfig:   DefaultTSConfig,
		Extensions: []string{".js", ".ts", ".tsx"},
		BuildFiles: []string{"BUILD", "BUILD.plz", "BUILD.bazel"},
		JS: JSConfig{
			BuildOutputDir:      "plz-out",
			ThirdPartyOutputDir: "plz-out/gen/third_party/js",
			ThirdPartyPackage:   "third_party/js",
			PackageRule:         "npm_library",
			FileRules: []FileRule{
				{ID: "js_library", Srcs: "srcs", Deps: "deps", Label: "name"},
				{ID: "js_library", Srcs: "src", Deps: "deps", Label: "name"},
				{ID: "filegroup", Srcs: "srcs", Deps: "deps", Label: "name"},
			},
		},
		Go: GoConfig{
			ThirdPartyPackage: "third_party/go",
			GetRule:           "go_get",
			LibraryRule:       "go_library",
			FileRules: []FileRule{
				{ID: "go_library", Srcs: "srcs", Deps: "deps", Label: "name"},
				{ID: "go_binary", Srcs: "srcs", Deps: "deps", Label: "name"},
				{ID: "go_test", Srcs: "srcs", Deps: "deps", Label: "name"},
			},
		},
	}
}

// Layout converts the JS section into the classifier layout.
func (c *Config) Layout() criteria.Layout {
	return criteria.Layout{
		BuildOutputDir:      c.JS.BuildOutputDir,
		ThirdPartyOutputDir: c.JS.ThirdPartyOutputDir,
		ThirdPartyPackage:   c.JS.ThirdPartyPackage,
		PackageRule:         c.JS.PackageRule,
		FileCalls:           FileCalls(c.JS.FileRules),
	}
}

// FileCalls converts rules into criteria calls.
func FileCalls(rules []FileRule) []criteria.FileCall {
	calls := make([]criteria.FileCall, 0, len(rules))
	for _, r := range rules {
		calls = append(calls, criteria.FileCall{ID: r.ID, Srcs: r.Srcs, Deps: r.Deps, Label: r.Label})
	}
	return calls
}

// TSConfigPath returns the absolute alias configuration path under root.
func (c *Config) TSConfigPath(root string) string {
	if filepath.IsAbs(c.TSConfig) {
		return c.TSConfig
	}
	return filepath.Join(root, c.TSConfig)
}

// LoadConfig loads configuration from path, detecting the format from its
// extension. Values the file leaves unset keep their defaults.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		cfg, err = LoadTOMLConfig(path)
	case ".star":
		cfg, err = LoadStarlarkConfig(path, DefaultStarlarkTimeout)
	default:
		return nil, fmt.Errorf("%w: unsupported config file extension %q (expected .star or .toml)", ErrConfigLoad, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	merged := DefaultConfig()
	merged.Merge(cfg)
	return merged, nil
}

// DiscoverConfig searches for a configuration file.
//
// Resolution order:
//  1. If DEPCRIT_CONFIG is set, use that path
//  2. Walk up from startDir looking for depcrit.star or depcrit.toml,
//     stopping at the git root
//
// Returns the loaded config and the path it came from. If nothing is found
// the defaults are returned with an empty path.
func DiscoverConfig(startDir string) (*Config, string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := LoadConfig(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	gitRoot := findGitRoot(absDir)

	dir := absDir
	for {
		configPath, err := findConfigInDir(dir)
		if err != nil {
			return nil, "", err
		}
		if configPath != "" {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, "", err
			}
			return cfg, configPath, nil
		}

		if gitRoot != "" && dir == gitRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return DefaultConfig(), "", nil
}

// findConfigInDir returns the config file in dir, "" when there is none, and
// ErrConflict when both formats are present.
func findConfigInDir(dir string) (string, error) {
	var found []string
	for _, name := range []string{ConfigStar, ConfigTOML} {
		if fileExists(filepath.Join(dir, name)) {
			found = append(found, name)
		}
	}

	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return filepath.Join(dir, found[0]), nil
	default:
		return "", fmt.Errorf("%w: found %s in %s", ErrConflict, strings.Join(found, ", "), dir)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot returns the nearest ancestor holding .git, or "".
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Merge overlays the non-zero values of other onto c. Lists replace rather
// than append: an ordered extension or rule list is a policy, not a set.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Repo != "" {
		c.Repo = other.Repo
	}
	if other.TSConfig != "" {
		c.TSConfig = other.TSConfig
	}
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if len(other.BuildFiles) > 0 {
		c.BuildFiles = other.BuildFiles
	}

	if other.JS.BuildOutputDir != "" {
		c.JS.BuildOutputDir = other.JS.BuildOutputDir
	}
	if other.JS.ThirdPartyOutputDir != "" {
		c.JS.ThirdPartyOutputDir = other.JS.ThirdPartyOutputDir
	}
	if other.JS.ThirdPartyPackage != "" {
		c.JS.ThirdPartyPackage = other.JS.ThirdPartyPackage
	}
	if other.JS.PackageRule != "" {
		c.JS.PackageRule = other.JS.PackageRule
	}
	if len(other.JS.FileRules) > 0 {
		c.JS.FileRules = other.JS.FileRules
	}

	if other.Go.ThirdPartyPackage != "" {
		c.Go.ThirdPartyPackage = other.Go.ThirdPartyPackage
	}
	if other.Go.GetRule != "" {
		c.Go.GetRule = other.Go.GetRule
	}
	if other.Go.LibraryRule != "" {
		c.Go.LibraryRule = other.Go.LibraryRule
	}
	if len(other.Go.FileRules) > 0 {
		c.Go.FileRules = other.Go.FileRules
	}
}
