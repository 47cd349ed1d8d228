// Package config stores user preferences for the bridge: where the
// engine lives, where exchange files go and how tolerant positional
// matching is. Preferences are a TOML file so they survive between
// invocations the way the host add-on's preference store did.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dudebrosw/autouv/pkg/mesh"
	"github.com/dudebrosw/autouv/pkg/mof"
)

// Preferences is the on-disk configuration.
type Preferences struct {
	// MOFDir is the directory containing the engine executables.
	MOFDir string `toml:"mof_dir"`

	// Executable is the engine binary name inside MOFDir.
	Executable string `toml:"executable"`

	// TempDir holds per-item exchange files; empty means the OS temp
	// directory.
	TempDir string `toml:"temp_dir"`

	// Epsilon is the positional matching tolerance in scene units.
	Epsilon float64 `toml:"epsilon"`

	// TimeoutSeconds bounds one engine invocation; zero disables the
	// limit.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Default returns the baseline preferences.
func Default() Preferences {
	return Preferences{
		Executable:     mof.DefaultExecutable,
		Epsilon:        mesh.DefaultEpsilon,
		TimeoutSeconds: 300,
	}
}

// Load reads preferences from path, layered over the defaults. A
// missing file is not an error: it simply yields the defaults.
func Load(path string) (Preferences, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if p.Executable == "" {
		p.Executable = mof.DefaultExecutable
	}
	if p.Epsilon <= 0 {
		p.Epsilon = mesh.DefaultEpsilon
	}
	return p, nil
}

// Save writes preferences to path, creating parent directories as
// needed.
func (p Preferences) Save(path string) error {
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ExecutablePath joins the configured engine directory and binary
// name.
func (p Preferences) ExecutablePath() string {
	return filepath.Join(p.MOFDir, p.Executable)
}

// Timeout converts the configured limit to a duration.
func (p Preferences) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}
