package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads dir/.env into the process environment. Variables that are
// already set to a non-empty value win; a missing file is not an error.
func LoadDotEnv(dir string) error {
	vars, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: reading .env: %w", ErrConfigLoad, err)
	}
	for k, v := range vars {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("%w: setting %s from .env: %w", ErrConfigLoad, k, err)
		}
	}
	return nil
}

// RepoRoot picks the repository root: the explicit flag value, then the
// config file, then $REPO. The result is absolute with no trailing separator.
func (c *Config) RepoRoot(flagValue string) (string, error) {
	root := flagValue
	if root == "" {
		root = c.Repo
	}
	if root == "" {
		root = os.Getenv(EnvRepo)
	}
	if root == "" {
		return "", fmt.Errorf("%w: %w", ErrConfigLoad, ErrNoRepo)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: resolving repository root: %w", ErrConfigLoad, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: repository root: %w", ErrConfigLoad, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: repository root %s is not a directory", ErrConfigLoad, abs)
	}
	return abs, nil
}
