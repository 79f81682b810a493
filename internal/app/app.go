// Package app implements the application layer for gale.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/gale/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// Resolver computes a version assignment for a workspace.
type Resolver interface {
	Resolve(ctx context.Context, ws *domain.Workspace, opts resolver.Options) (*domain.ResolutionGraph, error)
}

// Fetcher materializes the content of a resolution.
type Fetcher interface {
	Fetch(ctx context.Context, graph *domain.ResolutionGraph, locked map[string]domain.LockedPackage) (*domain.FetchReport, error)
	Materialize(report *domain.FetchReport, projectRoot string) error
}

// App orchestrates the install workflow across the manifest loader, resolver,
// fetch engine, and lockfile manager.
type App struct {
	manifests ports.ManifestLoader
	resolver  Resolver
	fetcher   Fetcher
	lock      ports.LockManager
	store     ports.BlobStore
	artifacts ports.ArtifactCache
	logger    ports.Logger
}

// New creates a new App instance.
func New(
	manifests ports.ManifestLoader,
	res Resolver,
	fetcher Fetcher,
	lock ports.LockManager,
	store ports.BlobStore,
	artifacts ports.ArtifactCache,
	logger ports.Logger,
) *App {
	return &App{
		manifests: manifests,
		resolver:  res,
		fetcher:   fetcher,
		lock:      lock,
		store:     store,
		artifacts: artifacts,
		logger:    logger,
	}
}

// InstallOptions control one install run.
type InstallOptions struct {
	// Frozen validates the resolution against the lockfile and fails on any
	// drift. The lockfile is never rewritten.
	Frozen bool
	// Update ignores the lockfile's version hints and resolves fresh.
	Update bool
}

// Install resolves, fetches, and links the dependencies of the project rooted
// at dir, then records the result in the lockfile (unless frozen).
func (a *App) Install(ctx context.Context, dir string, opts InstallOptions) error {
	ws, err := a.manifests.Load(dir)
	if err != nil {
		return zerr.Wrap(err, "loading workspace")
	}

	lockfile, err := a.lock.Read(dir)
	if err != nil {
		return zerr.Wrap(err, "reading lockfile")
	}

	var resolveOpts resolver.Options
	if lockfile != nil && !opts.Update {
		resolveOpts.Locked = lockfile.Pins()
	}
	graph, err := a.resolver.Resolve(ctx, ws, resolveOpts)
	if err != nil {
		return err
	}

	if opts.Frozen {
		if err := a.lock.Check(graph, lockfile); err != nil {
			return err
		}
	}

	report, err := a.fetcher.Fetch(ctx, graph, lockedByName(lockfile))
	if err != nil {
		return zerr.Wrap(err, "fetching packages")
	}
	if failed := report.Failed(); len(failed) > 0 {
		for _, entry := range failed {
			a.logger.Error(entry.Err)
		}
		return zerr.With(
			zerr.With(zerr.New("some packages could not be fetched"), "failed", len(failed)),
			"first", failed[0].Name,
		)
	}

	if err := a.fetcher.Materialize(report, dir); err != nil {
		return zerr.Wrap(err, "linking dependencies")
	}

	if opts.Frozen {
		return nil
	}
	written, err := a.lock.Write(dir, graph, report)
	if err != nil {
		return zerr.Wrap(err, "writing lockfile")
	}
	a.logDiff(domain.DiffLockfiles(lockfile, written))
	return nil
}

// Outdated resolves fresh, ignoring lockfile hints, and reports how the
// lockfile would change. Nothing is fetched or written.
func (a *App) Outdated(ctx context.Context, dir string) (domain.LockfileDiff, error) {
	ws, err := a.manifests.Load(dir)
	if err != nil {
		return domain.LockfileDiff{}, zerr.Wrap(err, "loading workspace")
	}
	lockfile, err := a.lock.Read(dir)
	if err != nil {
		return domain.LockfileDiff{}, zerr.Wrap(err, "reading lockfile")
	}

	graph, err := a.resolver.Resolve(ctx, ws, resolver.Options{})
	if err != nil {
		return domain.LockfileDiff{}, err
	}

	return domain.DiffLockfiles(lockfile, candidateLockfile(graph, lockfile)), nil
}

// GCResult reports what garbage collection removed.
type GCResult struct {
	BlobsRemoved     int
	ArtifactsEvicted int
}

// GC removes blobs not referenced by the project's lockfile and applies the
// artifact cache's eviction policies.
func (a *App) GC(dir string) (GCResult, error) {
	lockfile, err := a.lock.Read(dir)
	if err != nil {
		return GCResult{}, zerr.Wrap(err, "reading lockfile")
	}

	retained := map[string]struct{}{}
	if lockfile != nil {
		for _, pkg := range lockfile.Packages {
			if hash, ok := strings.CutPrefix(pkg.Checksum, "blake3:"); ok {
				retained[hash] = struct{}{}
			}
		}
	}

	blobs, err := a.store.GC(retained)
	if err != nil {
		return GCResult{}, zerr.Wrap(err, "collecting blob store")
	}
	evicted, err := a.artifacts.Evict()
	if err != nil {
		return GCResult{BlobsRemoved: blobs}, zerr.Wrap(err, "evicting artifacts")
	}

	result := GCResult{BlobsRemoved: blobs, ArtifactsEvicted: evicted}
	a.logger.Info(fmt.Sprintf("gc removed %d blobs and %d artifacts", result.BlobsRemoved, result.ArtifactsEvicted))
	return result, nil
}

func lockedByName(lockfile *domain.Lockfile) map[string]domain.LockedPackage {
	if lockfile == nil {
		return nil
	}
	locked := make(map[string]domain.LockedPackage, len(lockfile.Packages))
	for _, pkg := range lockfile.Packages {
		locked[pkg.Name] = pkg
	}
	return locked
}

// candidateLockfile predicts the lockfile a fresh install would produce.
// Entries whose version and source are unchanged keep their locked revision
// and checksum so the diff only surfaces real changes.
func candidateLockfile(graph *domain.ResolutionGraph, lockfile *domain.Lockfile) *domain.Lockfile {
	candidate := &domain.Lockfile{FormatVersion: domain.LockfileFormatVersion}
	for _, pkg := range graph.Packages() {
		entry := domain.LockedPackage{
			Name:    pkg.Name.String(),
			Version: pkg.Version.String(),
			Source:  pkg.Source,
		}
		if lockfile != nil {
			if old, ok := lockfile.Package(entry.Name); ok && old.Version == entry.Version && old.Source == entry.Source {
				entry = old
			}
		}
		candidate.Packages = append(candidate.Packages, entry)
	}
	candidate.Sort()
	return candidate
}

func (a *App) logDiff(diff domain.LockfileDiff) {
	for _, entry := range diff.Entries {
		switch entry.Kind {
		case domain.DiffAdded:
			a.logger.Info(fmt.Sprintf("added %s %s", entry.Name, entry.New.Version))
		case domain.DiffRemoved:
			a.logger.Info(fmt.Sprintf("removed %s (was %s)", entry.Name, entry.Old.Version))
		default:
			a.logger.Info(fmt.Sprintf("%s %s %s -> %s", entry.Kind, entry.Name, entry.Old.Version, entry.New.Version))
		}
	}
}
