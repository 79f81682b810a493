package resolver

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

// MemoryProvider is a ports.VersionProvider backed by an in-memory package
// index. It ignores sources entirely, which makes it convenient for tests and
// for callers that assemble their universe up front.
type MemoryProvider struct {
	mu       sync.RWMutex
	packages map[string]map[string][]domain.Dependency
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{packages: map[string]map[string][]domain.Dependency{}}
}

// Add registers one version of a package with its dependencies. The version
// must parse as semver; Add panics otherwise since it is a programming error
// in the calling test or setup code.
func (p *MemoryProvider) Add(name, version string, deps ...domain.Dependency) {
	v := semver.MustParse(version)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.packages[name] == nil {
		p.packages[name] = map[string][]domain.Dependency{}
	}
	p.packages[name][v.String()] = deps
}

// Versions implements ports.VersionProvider.
func (p *MemoryProvider) Versions(_ context.Context, name string, _ domain.Source) ([]*semver.Version, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	versions, ok := p.packages[name]
	if !ok {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrPackageNotFound, "looking up package"),
			"package", name,
		)
	}
	out := make([]*semver.Version, 0, len(versions))
	for raw := range versions {
		out = append(out, semver.MustParse(raw))
	}
	return out, nil
}

// Dependencies implements ports.VersionProvider.
func (p *MemoryProvider) Dependencies(_ context.Context, name string, _ domain.Source, version *semver.Version) ([]domain.Dependency, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	versions, ok := p.packages[name]
	if !ok {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrPackageNotFound, "looking up package"),
			"package", name,
		)
	}
	deps, ok := versions[version.String()]
	if !ok {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "looking up package version"), "package", name),
			"version", version.String(),
		)
	}
	return deps, nil
}

var _ ports.VersionProvider = (*MemoryProvider)(nil)
