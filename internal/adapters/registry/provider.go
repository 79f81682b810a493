// Package registry answers resolver metadata queries from git repositories,
// local paths, and named registry indexes.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/zerr"
)

// GitProvider implements ports.VersionProvider on top of mirrored git
// repositories. Every piece of metadata is fetched at most once per provider
// lifetime; concurrent callers asking for the same repository coalesce onto a
// single network operation.
type GitProvider struct {
	mirror     ports.Mirror
	store      ports.BlobStore
	loader     ports.ManifestLoader
	logger     ports.Logger
	registries map[string]string

	group singleflight.Group

	mu        sync.Mutex
	tags      map[string][]ports.TagRef
	manifests map[string]*domain.Manifest
}

var _ ports.VersionProvider = (*GitProvider)(nil)

func NewGitProvider(mirror ports.Mirror, store ports.BlobStore, loader ports.ManifestLoader, logger ports.Logger, registries map[string]string) *GitProvider {
	return &GitProvider{
		mirror:     mirror,
		store:      store,
		loader:     loader,
		logger:     logger,
		registries: registries,
		tags:       map[string][]ports.TagRef{},
		manifests:  map[string]*domain.Manifest{},
	}
}

// Versions returns the candidate versions of a package. Tag-ranged sources
// enumerate the repository's semver tags; branch- and revision-pinned sources
// expose exactly the version their manifest declares; path sources are read
// live from disk.
func (p *GitProvider) Versions(ctx context.Context, name string, src domain.Source) ([]*semver.Version, error) {
	if src.Kind == domain.SourcePath {
		manifest, err := p.pathManifest(name, src)
		if err != nil {
			return nil, err
		}
		return []*semver.Version{manifestVersion(manifest)}, nil
	}

	url, err := p.sourceURL(name, src)
	if err != nil {
		return nil, err
	}

	if pinned(src) {
		manifest, err := p.manifestAtRef(ctx, url, src)
		if err != nil {
			return nil, err
		}
		return []*semver.Version{manifestVersion(manifest)}, nil
	}

	tags, err := p.tagsFor(ctx, url)
	if err != nil {
		return nil, err
	}
	versions := make([]*semver.Version, len(tags))
	for i, tag := range tags {
		versions[i] = tag.Version
	}
	return versions, nil
}

// Dependencies returns the dependencies declared by one version of a package,
// sorted by name.
func (p *GitProvider) Dependencies(ctx context.Context, name string, src domain.Source, version *semver.Version) ([]domain.Dependency, error) {
	var (
		manifest *domain.Manifest
		err      error
	)
	switch {
	case src.Kind == domain.SourcePath:
		manifest, err = p.pathManifest(name, src)
	case pinned(src):
		var url string
		url, err = p.sourceURL(name, src)
		if err == nil {
			manifest, err = p.manifestAtRef(ctx, url, src)
		}
	default:
		var url string
		url, err = p.sourceURL(name, src)
		if err == nil {
			manifest, err = p.manifestAtVersion(ctx, url, version)
		}
	}
	if err != nil {
		return nil, err
	}

	deps := make([]domain.Dependency, 0, len(manifest.Dependencies))
	for _, depName := range manifest.DependencyNames() {
		deps = append(deps, manifest.Dependencies[depName])
	}
	return deps, nil
}

// pinned reports whether the source names one exact upstream state rather
// than a tag range.
func pinned(src domain.Source) bool {
	return src.RefKind == domain.RefBranch || src.RefKind == domain.RefRevision ||
		(src.RefKind == domain.RefTag && src.Ref != "")
}

func (p *GitProvider) sourceURL(name string, src domain.Source) (string, error) {
	switch src.Kind {
	case domain.SourceGit:
		return src.URL, nil
	case domain.SourceRegistry:
		base, ok := p.registries[src.Registry]
		if !ok {
			return "", zerr.With(
				zerr.With(zerr.Wrap(domain.ErrUnsupportedSource, "resolving registry"), "package", name),
				"registry", src.Registry,
			)
		}
		return strings.TrimSuffix(base, "/") + "/" + name + ".git", nil
	default:
		return "", zerr.With(
			zerr.With(zerr.Wrap(domain.ErrUnsupportedSource, "resolving source url"), "package", name),
			"kind", string(src.Kind),
		)
	}
}

// pathManifest re-reads a local dependency's manifest on every call so that
// edits to the directory are observed by the next resolution.
func (p *GitProvider) pathManifest(name string, src domain.Source) (*domain.Manifest, error) {
	ws, err := p.loader.Load(src.Path)
	if err != nil {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(err, "loading path dependency"), "package", name),
			"path", src.Path,
		)
	}
	return ws.Members[0], nil
}

// tagsFor updates the mirror and lists its tags, once per URL.
func (p *GitProvider) tagsFor(ctx context.Context, url string) ([]ports.TagRef, error) {
	p.mu.Lock()
	cached, ok := p.tags[url]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do("tags:"+url, func() (any, error) {
		p.mu.Lock()
		cached, ok := p.tags[url]
		p.mu.Unlock()
		if ok {
			return cached, nil
		}
		if p.logger != nil {
			p.logger.Debug("updating mirror for " + url)
		}
		if err := p.mirror.Update(ctx, url); err != nil {
			return nil, err
		}
		tags, err := p.mirror.Tags(ctx, url)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.tags[url] = tags
		p.mu.Unlock()
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ports.TagRef), nil
}

// manifestAtVersion loads the manifest of the tag matching version.
func (p *GitProvider) manifestAtVersion(ctx context.Context, url string, version *semver.Version) (*domain.Manifest, error) {
	tags, err := p.tagsFor(ctx, url)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if tag.Version.Equal(version) {
			return p.manifestAt(ctx, url, tag.Revision)
		}
	}
	return nil, zerr.With(
		zerr.With(zerr.Wrap(domain.ErrRefNotFound, "no tag for version"), "url", url),
		"version", version.String(),
	)
}

// manifestAtRef resolves a declared tag, branch, or revision and loads the
// manifest there.
func (p *GitProvider) manifestAtRef(ctx context.Context, url string, src domain.Source) (*domain.Manifest, error) {
	if err := p.updateOnce(ctx, url); err != nil {
		return nil, err
	}
	revision, err := p.mirror.ResolveRef(ctx, url, src.RefKind, src.Ref)
	if err != nil {
		return nil, err
	}
	return p.manifestAt(ctx, url, revision)
}

// updateOnce piggybacks on the tags cache: a URL with a tags entry has an
// up-to-date mirror.
func (p *GitProvider) updateOnce(ctx context.Context, url string) error {
	_, err := p.tagsFor(ctx, url)
	return err
}

// manifestAt checks out a revision and parses the manifest at the tree root,
// once per (url, revision).
func (p *GitProvider) manifestAt(ctx context.Context, url, revision string) (*domain.Manifest, error) {
	key := url + "@" + revision

	p.mu.Lock()
	cached, ok := p.manifests[key]
	p.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do("manifest:"+key, func() (any, error) {
		p.mu.Lock()
		cached, ok := p.manifests[key]
		p.mu.Unlock()
		if ok {
			return cached, nil
		}

		treeHash, err := p.mirror.Checkout(ctx, url, revision)
		if err != nil {
			return nil, err
		}
		tree, err := p.store.GetTree(treeHash)
		if err != nil {
			return nil, err
		}
		var manifestHash string
		for _, entry := range tree.Entries {
			if entry.Path == domain.ManifestFileName {
				manifestHash = entry.Hash
				break
			}
		}
		if manifestHash == "" {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrManifestNotFound, "tree has no manifest"), "url", url),
				"revision", revision,
			)
		}
		data, err := p.store.Get(manifestHash)
		if err != nil {
			return nil, err
		}
		manifest, err := p.loader.Parse(data)
		if err != nil {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(err, "parsing fetched manifest"), "url", url),
				"revision", revision,
			)
		}

		p.mu.Lock()
		p.manifests[key] = manifest
		p.mu.Unlock()
		return manifest, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Manifest), nil
}

// manifestVersion tolerates manifests without a version field; they behave
// as version 0.0.0.
func manifestVersion(m *domain.Manifest) *semver.Version {
	if m.Version != nil {
		return m.Version
	}
	return semver.MustParse("0.0.0")
}
