// Package fetch materializes resolved packages into the blob store, running
// network work in parallel with per-repository coalescing.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.trai.ch/zerr"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

// Options tune a fetch engine.
type Options struct {
	// Jobs bounds concurrent package fetches.
	Jobs int
	// NetworkTimeout bounds each individual network attempt.
	NetworkTimeout time.Duration
	// RetryAttempts is the number of tries for transient failures. Backoff
	// between tries is exponential starting at RetryBackoff.
	RetryAttempts int
	RetryBackoff  time.Duration
	// Registries maps registry names to their git base URLs.
	Registries map[string]string
}

func (o Options) withDefaults() Options {
	if o.Jobs <= 0 {
		o.Jobs = 8
	}
	if o.NetworkTimeout <= 0 {
		o.NetworkTimeout = 30 * time.Second
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	return o
}

// Engine fetches the content of resolved packages. Identical upstream
// repositories are updated once per run no matter how many packages share
// them, and packages already present in the blob store never touch the
// network.
type Engine struct {
	mirror    ports.Mirror
	store     ports.BlobStore
	telemetry ports.Telemetry
	logger    ports.Logger
	opts      Options
}

// New creates an Engine. telemetry may be nil to disable progress reporting.
func New(mirror ports.Mirror, store ports.BlobStore, telemetry ports.Telemetry, logger ports.Logger, opts Options) *Engine {
	return &Engine{
		mirror:    mirror,
		store:     store,
		telemetry: telemetry,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// runState coalesces repository work inside one Fetch run: the first package
// to need an operation performs it, every other package blocks on the same
// result. Each distinct operation runs exactly once per run.
type runState struct {
	mu       sync.Mutex
	updates  map[string]*updateFuture
	checkout map[string]*checkoutFuture
}

type updateFuture struct {
	once sync.Once
	err  error
}

type checkoutFuture struct {
	once     sync.Once
	treeHash string
	err      error
}

// Fetch materializes every package in the graph. locked carries the prior
// lockfile entries; a package whose locked tree is already in the blob store
// is reported as cached without any network traffic. All packages are
// attempted, so the report carries every failure from one run.
func (e *Engine) Fetch(ctx context.Context, graph *domain.ResolutionGraph, locked map[string]domain.LockedPackage) (*domain.FetchReport, error) {
	state := &runState{
		updates:  map[string]*updateFuture{},
		checkout: map[string]*checkoutFuture{},
	}

	pkgs := graph.Packages()
	results := make(chan domain.FetchEntry, len(pkgs))

	eg := &errgroup.Group{}
	eg.SetLimit(e.opts.Jobs)
	for _, pkg := range pkgs {
		eg.Go(func() error {
			results <- e.fetchOne(ctx, state, pkg, locked[pkg.Name.String()])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	close(results)

	report := &domain.FetchReport{}
	for entry := range results {
		report.Add(entry)
	}
	report.Sort()
	return report, ctx.Err()
}

func (e *Engine) fetchOne(ctx context.Context, state *runState, pkg domain.ResolvedPackage, locked domain.LockedPackage) domain.FetchEntry {
	name := pkg.Name.String()
	entry := domain.FetchEntry{Name: name, Source: pkg.Source}

	var vtx ports.Vertex
	if e.telemetry != nil {
		ctx, vtx = e.telemetry.Record(ctx, "fetch "+name+"@"+pkg.Version.String())
	}
	done := func(err error, cached bool) {
		if vtx == nil {
			return
		}
		if cached {
			vtx.Cached()
			return
		}
		vtx.Complete(err)
	}

	switch pkg.Source.Kind {
	case domain.SourcePath:
		// Path packages are linked live from the local directory; there is
		// nothing to snapshot.
		done(nil, false)
		return entry

	case domain.SourceGit, domain.SourceRegistry:
		url, err := e.sourceURL(pkg)
		if err != nil {
			entry.Err = err
			done(err, false)
			return entry
		}

		if hash, rev, ok := e.cachedTree(pkg, locked); ok {
			entry.TreeHash = hash
			entry.Revision = rev
			entry.Cached = true
			done(nil, true)
			return entry
		}

		revision, treeHash, err := e.fetchGit(ctx, state, url, pkg)
		entry.Revision = revision
		entry.TreeHash = treeHash
		entry.Err = err
		done(err, false)
		return entry

	default:
		err := zerr.With(
			zerr.With(zerr.Wrap(domain.ErrUnsupportedSource, "fetching package"), "package", name),
			"kind", string(pkg.Source.Kind),
		)
		entry.Err = err
		done(err, false)
		return entry
	}
}

func (e *Engine) sourceURL(pkg domain.ResolvedPackage) (string, error) {
	switch pkg.Source.Kind {
	case domain.SourceGit:
		return pkg.Source.URL, nil
	case domain.SourceRegistry:
		base, ok := e.opts.Registries[pkg.Source.Registry]
		if !ok {
			return "", zerr.With(
				zerr.With(zerr.Wrap(domain.ErrUnsupportedSource, "resolving registry"), "package", pkg.Name.String()),
				"registry", pkg.Source.Registry,
			)
		}
		return strings.TrimSuffix(base, "/") + "/" + pkg.Name.String() + ".git", nil
	default:
		return "", zerr.With(
			zerr.Wrap(domain.ErrUnsupportedSource, "resolving source url"),
			"kind", string(pkg.Source.Kind),
		)
	}
}

// cachedTree decides whether the locked entry lets us skip the network: the
// ref must be immutable (a tag or exact revision, not a branch tip), the
// locked version and source must match the resolution, and the tree must
// still be in the store. A source change invalidates the entry even at the
// same version, since the locked checksum describes the old source's content.
func (e *Engine) cachedTree(pkg domain.ResolvedPackage, locked domain.LockedPackage) (hash, revision string, ok bool) {
	if pkg.Source.RefKind == domain.RefBranch {
		return "", "", false
	}
	if locked.Version != pkg.Version.String() || locked.Source != pkg.Source {
		return "", "", false
	}
	hash = strings.TrimPrefix(locked.Checksum, "blake3:")
	if hash == "" || !e.store.Contains(hash) {
		return "", "", false
	}
	return hash, locked.Revision, true
}

func (e *Engine) fetchGit(ctx context.Context, state *runState, url string, pkg domain.ResolvedPackage) (revision, treeHash string, err error) {
	if err := e.updateOnce(ctx, state, url); err != nil {
		return "", "", err
	}

	revision, err = e.resolveRevision(ctx, url, pkg)
	if err != nil {
		return "", "", err
	}

	treeHash, err = e.checkoutOnce(ctx, state, url, revision)
	if err != nil {
		return revision, "", err
	}
	return revision, treeHash, nil
}

// resolveRevision maps the package's ref to a commit hash. Packages selected
// by version range have no declared ref; their revision is the tag matching
// the resolved version.
func (e *Engine) resolveRevision(ctx context.Context, url string, pkg domain.ResolvedPackage) (string, error) {
	src := pkg.Source
	switch src.RefKind {
	case domain.RefRevision:
		return src.Ref, nil
	case domain.RefTag, domain.RefBranch:
		return e.mirror.ResolveRef(ctx, url, src.RefKind, src.Ref)
	}

	tags, err := e.mirror.Tags(ctx, url)
	if err != nil {
		return "", err
	}
	for _, tag := range tags {
		if tag.Version.Equal(pkg.Version) {
			return tag.Revision, nil
		}
	}
	err = zerr.Wrap(domain.ErrRefNotFound, "finding tag for resolved version")
	err = zerr.With(err, "package", pkg.Name.String())
	err = zerr.With(err, "version", pkg.Version.String())
	return "", zerr.With(err, "url", url)
}

func (e *Engine) updateOnce(ctx context.Context, state *runState, url string) error {
	state.mu.Lock()
	f, ok := state.updates[url]
	if !ok {
		f = &updateFuture{}
		state.updates[url] = f
	}
	state.mu.Unlock()

	f.once.Do(func() {
		f.err = e.withRetry(ctx, func(ctx context.Context) error {
			return e.mirror.Update(ctx, url)
		})
	})
	return f.err
}

func (e *Engine) checkoutOnce(ctx context.Context, state *runState, url, revision string) (string, error) {
	key := url + "@" + revision

	state.mu.Lock()
	f, ok := state.checkout[key]
	if !ok {
		f = &checkoutFuture{}
		state.checkout[key] = f
	}
	state.mu.Unlock()

	f.once.Do(func() {
		f.treeHash, f.err = e.mirror.Checkout(ctx, url, revision)
	})
	if f.err != nil {
		return "", f.err
	}
	return f.treeHash, nil
}

// withRetry runs op with a per-attempt timeout, retrying transient network
// failures with exponential backoff. Non-transient failures return immediately.
func (e *Engine) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < e.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := e.opts.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if e.logger != nil {
				e.logger.Warn(fmt.Sprintf("retrying after transient failure (attempt %d): %v", attempt+1, err))
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.opts.NetworkTimeout)
		err = op(attemptCtx)
		cancel()

		// A per-attempt timeout with the parent context still alive is as
		// retryable as any other transient failure.
		transient := errors.Is(err, domain.ErrTransientNetwork) ||
			(errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil)
		if err == nil || !transient {
			return err
		}
	}
	return err
}
