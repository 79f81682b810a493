// Package config loads the tool-level settings for gale.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by the loader. They win over any file.
const (
	EnvCacheDir = "GALE_CACHE_DIR"
	EnvJobs     = "GALE_JOBS"
)

// fileName is the per-project settings file, looked up under <dir>/.gale/.
const fileName = "config.yaml"

// Loader implements ports.SettingsLoader. Settings are layered: built-in
// defaults, then the user config file, then the project config file, then
// environment variables.
type Loader struct {
	logger ports.Logger

	// userConfigDir is overridable for tests; empty means os.UserConfigDir.
	userConfigDir string
}

var _ ports.SettingsLoader = (*Loader)(nil)

func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load returns the effective settings for the project rooted at dir.
func (l *Loader) Load(dir string) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	if user := l.userConfigPath(); user != "" {
		if err := mergeFile(&settings, user); err != nil {
			return domain.Settings{}, err
		}
	}
	if dir != "" {
		if err := mergeFile(&settings, filepath.Join(dir, ".gale", fileName)); err != nil {
			return domain.Settings{}, err
		}
	}
	if err := mergeEnv(&settings); err != nil {
		return domain.Settings{}, err
	}

	if settings.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return domain.Settings{}, zerr.Wrap(err, "locating user cache dir")
		}
		settings.CacheDir = filepath.Join(base, "gale")
	}
	if settings.Jobs < 1 {
		settings.Jobs = 1
	}
	return settings, nil
}

func (l *Loader) userConfigPath() string {
	base := l.userConfigDir
	if base == "" {
		var err error
		base, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(base, "gale", fileName)
}

// mergeFile overlays the YAML file at path onto settings. A missing file is
// not an error.
func mergeFile(settings *domain.Settings, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from config locations
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "reading config file"), "path", path)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return zerr.With(zerr.Wrap(err, "parsing config file"), "path", path)
	}
	return nil
}

func mergeEnv(settings *domain.Settings) error {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		settings.CacheDir = dir
	}
	if jobs := os.Getenv(EnvJobs); jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "parsing "+EnvJobs), "value", jobs)
		}
		settings.Jobs = n
	}
	return nil
}
