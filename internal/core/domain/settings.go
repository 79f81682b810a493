package domain

import "time"

// Settings is the tool-level configuration shared by every command. It is
// distinct from package manifests: manifests describe a project, Settings
// describe this machine.
type Settings struct {
	// CacheDir is the root under which the blob store, git mirrors, and the
	// artifact cache live.
	CacheDir string `yaml:"cacheDir"`
	// Jobs bounds the number of concurrent fetch operations.
	Jobs int `yaml:"jobs"`
	// NetworkTimeout bounds each individual network attempt.
	NetworkTimeout time.Duration `yaml:"networkTimeout"`
	// RetryAttempts is the number of tries for transient network failures.
	RetryAttempts int `yaml:"retryAttempts"`
	// ArtifactMaxBytes caps the artifact cache size before eviction kicks in.
	// Zero disables the size cap.
	ArtifactMaxBytes int64 `yaml:"artifactMaxBytes"`
	// ArtifactMaxAge evicts artifacts not accessed within the window.
	// Zero disables age-based eviction.
	ArtifactMaxAge time.Duration `yaml:"artifactMaxAge"`
	// Registries maps registry names to git base URLs. A registry dependency
	// on package p against registry r resolves to <Registries[r]>/p.git.
	Registries map[string]string `yaml:"registries"`
}

// DefaultSettings returns the settings used when no config file is present.
// CacheDir is left empty and filled in by the loader from the OS cache dir.
func DefaultSettings() Settings {
	return Settings{
		Jobs:             8,
		NetworkTimeout:   30 * time.Second,
		RetryAttempts:    3,
		ArtifactMaxBytes: 10 << 30,
		ArtifactMaxAge:   30 * 24 * time.Hour,
	}
}
