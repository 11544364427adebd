package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout is the default execution timeout for Starlark config files.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrConfigureNotFound is returned when depcrit.star doesn't define configure().
var ErrConfigureNotFound = errors.New("depcrit.star must define a configure() function")

// ErrConfigureReturnType is returned when configure() doesn't return a dict.
var ErrConfigureReturnType = errors.New("configure() must return a dict")

// LoadStarlarkConfig loads a configuration from a Starlark file.
// The file must define a configure() function that returns a dict. Execution
// is sandboxed: the only host access is getenv, and it is bounded by timeout.
func LoadStarlarkConfig(path string, timeout time.Duration) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	thread := &starlark.Thread{Name: path}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	globals, err := starlark.ExecFile(thread, path, data, configPredeclared())
	if err != nil {
		return nil, fmt.Errorf("executing config %s: %w", path, err)
	}

	configureFn, ok := globals["configure"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigureNotFound)
	}
	fn, ok := configureFn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%s: configure must be a function, got %s", path, configureFn.Type())
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: calling configure(): %w", path, err)
	}

	dict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s: %w, got %s", path, ErrConfigureReturnType, result.Type())
	}

	return dictToConfig(dict)
}

func configPredeclared() starlark.StringDict {
	return starlark.StringDict{
		"getenv":  starlark.NewBuiltin("getenv", builtinGetenv),
		"host_os": starlark.String(runtime.GOOS),
	}
}

// builtinGetenv implements getenv(name, default="") -> string.
func builtinGetenv(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultVal starlark.String
	if err := starlark.UnpackArgs("getenv", args, kwargs, "name", &name, "default?", &defaultVal); err != nil {
		return nil, err
	}

	if val := os.Getenv(name); val != "" {
		return starlark.String(val), nil
	}
	return defaultVal, nil
}

func dictToConfig(d *starlark.Dict) (*Config, error) {
	var cfg Config

	if err := getString(d, "repo", &cfg.Repo); err != nil {
		return nil, err
	}
	if err := getString(d, "tsconfig", &cfg.TSConfig); err != nil {
		return nil, err
	}
	if err := getStrings(d, "extensions", &cfg.Extensions); err != nil {
		return nil, err
	}
	if err := getStrings(d, "build_files", &cfg.BuildFiles); err != nil {
		return nil, err
	}

	if js, err := getDict(d, "js"); err != nil {
		return nil, err
	} else if js != nil {
		if err := parseJSConfig(js, &cfg.JS); err != nil {
			return nil, fmt.Errorf("parsing js config: %w", err)
		}
	}

	if g, err := getDict(d, "go"); err != nil {
		return nil, err
	} else if g != nil {
		if err := getString(g, "third_party_package", &cfg.Go.ThirdPartyPackage); err != nil {
			return nil, fmt.Errorf("parsing go config: %w", err)
		}
		if err := getString(g, "get_rule", &cfg.Go.GetRule); err != nil {
			return nil, fmt.Errorf("parsing go config: %w", err)
		}
		if err := getString(g, "library_rule", &cfg.Go.LibraryRule); err != nil {
			return nil, fmt.Errorf("parsing go config: %w", err)
		}
		if err := parseFileRules(g, &cfg.Go.FileRules); err != nil {
			return nil, fmt.Errorf("parsing go config: %w", err)
		}
	}

	return &cfg, nil
}

func parseJSConfig(d *starlark.Dict, cfg *JSConfig) error {
	for key, dst := range map[string]*string{
		"build_output_dir":       &cfg.BuildOutputDir,
		"third_party_output_dir": &cfg.ThirdPartyOutputDir,
		"third_party_package":    &cfg.ThirdPartyPackage,
		"package_rule":           &cfg.PackageRule,
	} {
		if err := getString(d, key, dst); err != nil {
			return err
		}
	}
	return parseFileRules(d, &cfg.FileRules)
}

func parseFileRules(d *starlark.Dict, dst *[]FileRule) error {
	v, found, _ := d.Get(starlark.String("file_rules"))
	if !found {
		return nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return fmt.Errorf("file_rules must be a list, got %s", v.Type())
	}
	for i := 0; i < list.Len(); i++ {
		rd, ok := list.Index(i).(*starlark.Dict)
		if !ok {
			return fmt.Errorf("file_rules[%d] must be a dict, got %s", i, list.Index(i).Type())
		}
		var r FileRule
		for key, dst := range map[string]*string{"id": &r.ID, "srcs": &r.Srcs, "deps": &r.Deps, "label": &r.Label} {
			if err := getString(rd, key, dst); err != nil {
				return fmt.Errorf("file_rules[%d]: %w", i, err)
			}
		}
		if r.ID == "" {
			return fmt.Errorf("file_rules[%d]: id is required", i)
		}
		*dst = append(*dst, r)
	}
	return nil
}

func getString(d *starlark.Dict, key string, dst *string) error {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return fmt.Errorf("%s must be a string, got %s", key, v.Type())
	}
	*dst = s
	return nil
}

func getStrings(d *starlark.Dict, key string, dst *[]string) error {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return fmt.Errorf("%s must be a list, got %s", key, v.Type())
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return fmt.Errorf("%s[%d] must be a string", key, i)
		}
		out = append(out, s)
	}
	*dst = out
	return nil
}

func getDict(d *starlark.Dict, key string) (*starlark.Dict, error) {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil, nil
	}
	sub, ok := v.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s must be a dict, got %s", key, v.Type())
	}
	return sub, nil
}
