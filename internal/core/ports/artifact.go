package ports

import "go.trai.ch/gale/internal/core/domain"

// ArtifactCache stores compiled artifacts keyed by their build fingerprint.
// A miss is not an error; corruption is reported as a miss.
//
//go:generate mockgen -source=artifact.go -destination=mocks/mock_artifact.go -package=mocks
type ArtifactCache interface {
	// Lookup returns the cached artifact bytes for a key, and whether the
	// cache held a valid entry.
	Lookup(key domain.ArtifactKey) ([]byte, bool, error)

	// Store caches an artifact under its key, overwriting any prior entry.
	Store(key domain.ArtifactKey, data []byte) error

	// Evict applies the size and age policies and returns the number of
	// entries removed.
	Evict() (int, error)
}
