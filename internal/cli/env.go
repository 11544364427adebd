package cli

import (
	"fmt"
	"os"

	"github.com/albertocavalcante/depcrit/internal/config"
)

// Env is the configuration every tool settles before doing any work.
type Env struct {
	Config *config.Config

	// ConfigPath is the file the configuration came from, or "" for defaults.
	ConfigPath string

	// Root is the absolute repository root.
	Root string
}

// LoadEnv reads .env from the working directory, loads the configuration
// named by configFlag (or discovers one), and settles the repository root.
func LoadEnv(configFlag, repoFlag string) (*Env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := config.LoadDotEnv(cwd); err != nil {
		return nil, err
	}

	env := &Env{ConfigPath: configFlag}
	if configFlag != "" {
		env.Config, err = config.LoadConfig(configFlag)
	} else {
		env.Config, env.ConfigPath, err = config.DiscoverConfig(cwd)
	}
	if err != nil {
		return nil, err
	}

	env.Root, err = env.Config.RepoRoot(repoFlag)
	if err != nil {
		return nil, err
	}
	return env, nil
}
