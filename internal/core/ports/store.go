package ports

import "go.trai.ch/gale/internal/core/domain"

// BlobStore is the content-addressed store: immutable blobs keyed by the hash
// of their bytes, plus tree manifests that group blobs into source trees.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BlobStore interface {
	// Put stores a blob and returns its content hash. Storing the same bytes
	// twice is a no-op that returns the same hash.
	Put(data []byte) (string, error)

	// Get returns the bytes of a blob, verifying them against the hash.
	// Returns domain.ErrBlobNotFound for missing or corrupt blobs.
	Get(hash string) ([]byte, error)

	// Contains reports whether a blob is present, without reading it.
	Contains(hash string) bool

	// Link materializes a blob at dest without copying when the filesystem
	// allows it, falling back to a copy across devices.
	Link(hash, dest string) error

	// PutTree stores a tree manifest and returns the tree hash. The referenced
	// blobs must already be present.
	PutTree(tree *domain.Tree) (string, error)

	// GetTree loads a tree manifest by its hash.
	GetTree(hash string) (*domain.Tree, error)

	// LinkTree materializes a stored tree under destDir.
	LinkTree(hash, destDir string) error

	// GC removes every blob not in retained. Tree hashes in retained are
	// expanded to the blobs they reference. Returns the number of removed blobs.
	GC(retained map[string]struct{}) (int, error)
}
