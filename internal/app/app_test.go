package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"go.trai.ch/gale/internal/app"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports/mocks"
	"go.trai.ch/gale/internal/engine/resolver"
)

type fakeResolver struct {
	graph *domain.ResolutionGraph
	err   error

	calls   int
	gotOpts resolver.Options
}

func (f *fakeResolver) Resolve(_ context.Context, _ *domain.Workspace, opts resolver.Options) (*domain.ResolutionGraph, error) {
	f.calls++
	f.gotOpts = opts
	return f.graph, f.err
}

type fakeFetcher struct {
	report *domain.FetchReport
	err    error

	fetchCalls       int
	gotLocked        map[string]domain.LockedPackage
	materializeCalls int
	materializedDir  string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ *domain.ResolutionGraph, locked map[string]domain.LockedPackage) (*domain.FetchReport, error) {
	f.fetchCalls++
	f.gotLocked = locked
	return f.report, f.err
}

func (f *fakeFetcher) Materialize(_ *domain.FetchReport, projectRoot string) error {
	f.materializeCalls++
	f.materializedDir = projectRoot
	return nil
}

type fixture struct {
	manifests *mocks.MockManifestLoader
	lock      *mocks.MockLockManager
	store     *mocks.MockBlobStore
	artifacts *mocks.MockArtifactCache
	logger    *mocks.MockLogger
	resolver  *fakeResolver
	fetcher   *fakeFetcher
}

func newApp(t *testing.T) (*app.App, *fixture) {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		manifests: mocks.NewMockManifestLoader(ctrl),
		lock:      mocks.NewMockLockManager(ctrl),
		store:     mocks.NewMockBlobStore(ctrl),
		artifacts: mocks.NewMockArtifactCache(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		resolver:  &fakeResolver{},
		fetcher:   &fakeFetcher{},
	}
	f.logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return app.New(f.manifests, f.resolver, f.fetcher, f.lock, f.store, f.artifacts, f.logger), f
}

func workspaceOf(name string) *domain.Workspace {
	m := &domain.Manifest{
		Name:         domain.NewInternedString(name),
		Version:      semver.MustParse("0.1.0"),
		Dependencies: map[string]domain.Dependency{},
	}
	return domain.SinglePackage(m)
}

func graphOf(t *testing.T, pkgs ...domain.ResolvedPackage) *domain.ResolutionGraph {
	t.Helper()
	g, err := domain.NewResolutionGraph(pkgs, nil)
	require.NoError(t, err)
	return g
}

func pkg(name, version string) domain.ResolvedPackage {
	return domain.ResolvedPackage{
		Name:    domain.NewInternedString(name),
		Version: semver.MustParse(version),
		Source:  domain.GitSource("https://git.example.com/"+name+".git", "", ""),
	}
}

func TestApp_InstallWritesLockfile(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "1.0.0"))
	report := &domain.FetchReport{}
	report.Add(domain.FetchEntry{Name: "liba", Revision: "aaa", TreeHash: "cafe"})

	f.resolver.graph = graph
	f.fetcher.report = report
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(nil, nil)
	f.lock.EXPECT().Write(dir, graph, report).Return(&domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages:      []domain.LockedPackage{{Name: "liba", Version: "1.0.0"}},
	}, nil)

	require.NoError(t, a.Install(context.Background(), dir, app.InstallOptions{}))
	assert.Equal(t, 1, f.fetcher.materializeCalls)
	assert.Equal(t, dir, f.fetcher.materializedDir)
}

func TestApp_InstallUsesLockfileHints(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages:      []domain.LockedPackage{{Name: "liba", Version: "1.0.0"}},
	}

	f.resolver.graph = graphOf(t, pkg("liba", "1.0.0"))
	f.fetcher.report = &domain.FetchReport{}
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Write(dir, gomock.Any(), gomock.Any()).Return(lockfile, nil)

	require.NoError(t, a.Install(context.Background(), dir, app.InstallOptions{}))

	require.Contains(t, f.resolver.gotOpts.Locked, "liba")
	assert.Equal(t, "1.0.0", f.resolver.gotOpts.Locked["liba"].String())
	assert.Contains(t, f.fetcher.gotLocked, "liba")
}

func TestApp_UpdateIgnoresLockfileHints(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages:      []domain.LockedPackage{{Name: "liba", Version: "1.0.0"}},
	}

	f.resolver.graph = graphOf(t, pkg("liba", "1.1.0"))
	f.fetcher.report = &domain.FetchReport{}
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Write(dir, gomock.Any(), gomock.Any()).Return(lockfile, nil)

	require.NoError(t, a.Install(context.Background(), dir, app.InstallOptions{Update: true}))
	assert.Nil(t, f.resolver.gotOpts.Locked)
}

func TestApp_FrozenInstallNeverWrites(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "1.0.0"))
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages:      []domain.LockedPackage{{Name: "liba", Version: "1.0.0"}},
	}

	f.resolver.graph = graph
	f.fetcher.report = &domain.FetchReport{}
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Check(graph, lockfile).Return(nil)
	// No Write expectation: a frozen install must not rewrite the lock.

	require.NoError(t, a.Install(context.Background(), dir, app.InstallOptions{Frozen: true}))
	assert.Equal(t, 1, f.fetcher.materializeCalls)
}

func TestApp_FrozenDriftAbortsBeforeFetching(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "1.1.0"))
	lockfile := &domain.Lockfile{FormatVersion: domain.LockfileFormatVersion}
	drift := &domain.Drift{Entries: []domain.DriftEntry{{Name: "liba", Resolved: "1.1.0"}}}

	f.resolver.graph = graph
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Check(graph, lockfile).Return(drift)

	err := a.Install(context.Background(), dir, app.InstallOptions{Frozen: true})
	require.Error(t, err)

	var got *domain.Drift
	require.True(t, errors.As(err, &got))
	assert.Zero(t, f.fetcher.fetchCalls)
}

func TestApp_FetchFailureAbortsInstall(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	report := &domain.FetchReport{}
	report.Add(domain.FetchEntry{Name: "liba", Err: errors.New("connection reset")})

	f.resolver.graph = graphOf(t, pkg("liba", "1.0.0"))
	f.fetcher.report = report
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(nil, nil)
	f.logger.EXPECT().Error(gomock.Any())

	err := a.Install(context.Background(), dir, app.InstallOptions{})
	require.Error(t, err)
	assert.Zero(t, f.fetcher.materializeCalls)
}

func TestApp_OutdatedReportsOnlyRealChanges(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()

	stable := pkg("libstable", "2.0.0")
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Source: pkg("liba", "1.0.0").Source, Revision: "aaa", Checksum: "blake3:cafe"},
			{Name: "libstable", Version: "2.0.0", Source: stable.Source, Revision: "bbb", Checksum: "blake3:beef"},
		},
	}

	f.resolver.graph = graphOf(t, pkg("liba", "1.2.0"), stable, pkg("libnew", "0.1.0"))
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)

	diff, err := a.Outdated(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, diff.Entries, 2)
	assert.Equal(t, domain.DiffUpgraded, diff.Entries[0].Kind)
	assert.Equal(t, "liba", diff.Entries[0].Name)
	assert.Equal(t, domain.DiffAdded, diff.Entries[1].Kind)
	assert.Equal(t, "libnew", diff.Entries[1].Name)
}

func TestApp_GCRetainsLockedTrees(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Checksum: "blake3:cafe"},
			{Name: "liblocal", Version: "0.1.0"},
		},
	}

	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.store.EXPECT().GC(map[string]struct{}{"cafe": {}}).Return(3, nil)
	f.artifacts.EXPECT().Evict().Return(2, nil)

	result, err := a.GC(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.BlobsRemoved)
	assert.Equal(t, 2, result.ArtifactsEvicted)
}

func TestApp_GCWithoutLockfileRetainsNothing(t *testing.T) {
	a, f := newApp(t)
	dir := t.TempDir()

	f.lock.EXPECT().Read(dir).Return(nil, nil)
	f.store.EXPECT().GC(map[string]struct{}{}).Return(0, nil)
	f.artifacts.EXPECT().Evict().Return(0, nil)

	result, err := a.GC(dir)
	require.NoError(t, err)
	assert.Zero(t, result.BlobsRemoved)
}
