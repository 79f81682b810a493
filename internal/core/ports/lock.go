package ports

import "go.trai.ch/gale/internal/core/domain"

// LockManager reads, writes, and validates the project lockfile.
//
//go:generate mockgen -source=lock.go -destination=mocks/mock_lock.go -package=mocks
type LockManager interface {
	// Read loads the lockfile of the project rooted at dir. Returns nil, nil
	// when no lockfile exists.
	Read(dir string) (*domain.Lockfile, error)

	// Write builds a lockfile from a resolution and its fetch report and
	// persists it atomically under dir. Path-source packages are recorded
	// without revision or checksum.
	Write(dir string, graph *domain.ResolutionGraph, report *domain.FetchReport) (*domain.Lockfile, error)

	// Check compares a fresh resolution against the lockfile and returns a
	// *domain.Drift error when they disagree.
	Check(graph *domain.ResolutionGraph, lock *domain.Lockfile) error
}
