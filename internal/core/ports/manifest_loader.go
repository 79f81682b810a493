package ports

import "go.trai.ch/gale/internal/core/domain"

// ManifestLoader discovers and parses package manifests.
//
//go:generate mockgen -source=manifest_loader.go -destination=mocks/mock_manifest_loader.go -package=mocks
type ManifestLoader interface {
	// Load parses the manifest in dir. When the manifest declares a workspace,
	// member manifests are discovered and loaded too; otherwise the result is
	// a single-member workspace.
	Load(dir string) (*domain.Workspace, error)

	// Parse parses raw manifest bytes without touching the filesystem, as
	// when reading a manifest straight out of a stored source tree.
	Parse(data []byte) (*domain.Manifest, error)
}
