package ports

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/gale/internal/core/domain"
)

// VersionProvider answers the two questions dependency resolution asks of the
// outside world: which versions of a package exist, and what each version
// depends on. The source is the one the dependency graph declared for the
// package; stateless implementations use it to locate the package.
//
//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks
type VersionProvider interface {
	// Versions returns every known version of a package, in any order.
	// Returns domain.ErrPackageNotFound for unknown packages.
	Versions(ctx context.Context, name string, src domain.Source) ([]*semver.Version, error)

	// Dependencies returns the dependencies declared by one version of a
	// package.
	Dependencies(ctx context.Context, name string, src domain.Source, version *semver.Version) ([]domain.Dependency, error)
}
