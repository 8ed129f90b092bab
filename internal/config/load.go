package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// fileNames are searched in order inside the config directory. The first is
// also the path reported when none exists.
var fileNames = []string{"config.jsonc", "config.yaml", "config.yml"}

// Loaded is the effective configuration and where it came from.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	// Exists is false when Path was absent and defaults were used.
	Exists bool
}

// ResolvePath returns explicit when given. Otherwise it returns the first
// existing file under $XDG_CONFIG_HOME/recite (or ~/.config/recite), falling
// back to the JSONC name there.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return filepath.Join(dir, fileNames[0]), nil
}

func configDir() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "recite"), nil
}

// Load builds the effective configuration: defaults, then the config file
// when present, then environment overrides. The merged result is validated
// once, after the environment is applied.
func Load(explicit string) (Loaded, error) {
	path, err := ResolvePath(explicit)
	if err != nil {
		return Loaded{}, err
	}
	env, err := ReadEnv()
	if err != nil {
		return Loaded{}, err
	}

	out := Loaded{Path: path, Config: Default()}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		out.Warnings = append(out.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	default:
		out.Exists = true
		// Parse warnings are dropped; Validate below reports them again
		// against the merged config.
		if out.Config, _, err = Parse(string(content), out.Config); err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	ApplyEnv(&out.Config, env)
	warnings, err := Validate(out.Config)
	if err != nil {
		if !out.Exists {
			return Loaded{}, fmt.Errorf("config from environment: %w", err)
		}
		return Loaded{}, fmt.Errorf("config %q with environment: %w", path, err)
	}
	out.Warnings = append(out.Warnings, warnings...)
	return out, nil
}
