package commands_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"go.trai.ch/gale/cmd/gale/commands"
	"go.trai.ch/gale/internal/app"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports/mocks"
	"go.trai.ch/gale/internal/engine/resolver"
)

type fakeResolver struct {
	graph *domain.ResolutionGraph

	calls   int
	gotOpts resolver.Options
}

func (f *fakeResolver) Resolve(_ context.Context, _ *domain.Workspace, opts resolver.Options) (*domain.ResolutionGraph, error) {
	f.calls++
	f.gotOpts = opts
	return f.graph, nil
}

type fakeFetcher struct {
	report *domain.FetchReport

	fetchCalls       int
	materializeCalls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ *domain.ResolutionGraph, _ map[string]domain.LockedPackage) (*domain.FetchReport, error) {
	f.fetchCalls++
	return f.report, nil
}

func (f *fakeFetcher) Materialize(_ *domain.FetchReport, _ string) error {
	f.materializeCalls++
	return nil
}

type fixture struct {
	manifests *mocks.MockManifestLoader
	lock      *mocks.MockLockManager
	store     *mocks.MockBlobStore
	artifacts *mocks.MockArtifactCache
	resolver  *fakeResolver
	fetcher   *fakeFetcher
}

func newCLI(t *testing.T) (*commands.CLI, *fixture, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		manifests: mocks.NewMockManifestLoader(ctrl),
		lock:      mocks.NewMockLockManager(ctrl),
		store:     mocks.NewMockBlobStore(ctrl),
		artifacts: mocks.NewMockArtifactCache(ctrl),
		resolver:  &fakeResolver{},
		fetcher:   &fakeFetcher{},
	}
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	a := app.New(f.manifests, f.resolver, f.fetcher, f.lock, f.store, f.artifacts, logger)
	cli := commands.New(a)

	var out bytes.Buffer
	cli.SetOut(&out)
	return cli, f, &out
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

func TestInstall_Default(t *testing.T) {
	cli, f, _ := newCLI(t)
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
	}, nil)

	cli.SetArgs([]string{"install", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, 1, f.fetcher.materializeCalls)
}

func TestInstall_FrozenFlagSkipsLockfileWrite(t *testing.T) {
	cli, f, _ := newCLI(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "1.0.0"))
	report := &domain.FetchReport{}
	report.Add(domain.FetchEntry{Name: "liba", Revision: "aaa", TreeHash: "cafe"})
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Source: domain.GitSource("https://git.example.com/liba.git", "", "")},
		},
	}

	f.resolver.graph = graph
	f.fetcher.report = report
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Check(graph, lockfile).Return(nil)

	cli.SetArgs([]string{"install", "--frozen", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, 1, f.fetcher.materializeCalls)
}

func TestInstall_UpdateFlagIgnoresLockfileHints(t *testing.T) {
	cli, f, _ := newCLI(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "2.0.0"))
	report := &domain.FetchReport{}
	report.Add(domain.FetchEntry{Name: "liba", Revision: "bbb", TreeHash: "beef"})
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Source: domain.GitSource("https://git.example.com/liba.git", "", "")},
		},
	}

	f.resolver.graph = graph
	f.fetcher.report = report
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)
	f.lock.EXPECT().Write(dir, graph, report).Return(&domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
	}, nil)

	cli.SetArgs([]string{"install", "-u", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Nil(t, f.resolver.gotOpts.Locked)
}

func TestOutdated_UpToDate(t *testing.T) {
	cli, f, out := newCLI(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "1.0.0"))
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Source: domain.GitSource("https://git.example.com/liba.git", "", "")},
		},
	}

	f.resolver.graph = graph
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)

	cli.SetArgs([]string{"outdated", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "up to date")
}

func TestOutdated_ReportsChanges(t *testing.T) {
	cli, f, out := newCLI(t)
	dir := t.TempDir()
	graph := graphOf(t, pkg("liba", "2.0.0"), pkg("libnew", "0.1.0"))
	lockfile := &domain.Lockfile{
		FormatVersion: domain.LockfileFormatVersion,
		Packages: []domain.LockedPackage{
			{Name: "liba", Version: "1.0.0", Source: domain.GitSource("https://git.example.com/liba.git", "", "")},
		},
	}

	f.resolver.graph = graph
	f.manifests.EXPECT().Load(dir).Return(workspaceOf("root"), nil)
	f.lock.EXPECT().Read(dir).Return(lockfile, nil)

	cli.SetArgs([]string{"outdated", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "liba: upgraded 1.0.0 -> 2.0.0")
	assert.Contains(t, out.String(), "libnew: added 0.1.0")
}

func TestGC_PrintsCounts(t *testing.T) {
	cli, f, out := newCLI(t)
	dir := t.TempDir()

	f.lock.EXPECT().Read(dir).Return(nil, nil)
	f.store.EXPECT().GC(map[string]struct{}{}).Return(4, nil)
	f.artifacts.EXPECT().Evict().Return(2, nil)

	cli.SetArgs([]string{"gc", dir})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "Removed 4 blobs, evicted 2 artifacts")
}

func TestVersion(t *testing.T) {
	cli, _, out := newCLI(t)

	cli.SetArgs([]string{"version"})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "gale version")
}

func TestRoot_Help(t *testing.T) {
	cli, _, _ := newCLI(t)

	cli.SetArgs([]string{"--help"})
	require.NoError(t, cli.Execute(context.Background()))
}
