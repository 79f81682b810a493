package ports

import "go.trai.ch/gale/internal/core/domain"

// SettingsLoader loads the tool-level configuration.
//
//go:generate mockgen -source=settings_loader.go -destination=mocks/mock_settings_loader.go -package=mocks
type SettingsLoader interface {
	// Load returns the effective settings for a project directory: defaults,
	// overlaid with the config file if present, overlaid with environment
	// variables.
	Load(dir string) (domain.Settings, error)
}
