package gitrepo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/gale/internal/adapters/cas"
	"go.trai.ch/gale/internal/adapters/gitrepo"
	"go.trai.ch/gale/internal/core/domain"
)

// upstream is a local repository standing in for a remote.
type upstream struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &upstream{t: t, dir: dir, repo: repo}
}

func (u *upstream) commit(files map[string]string, msg string) string {
	u.t.Helper()
	wt, err := u.repo.Worktree()
	require.NoError(u.t, err)

	for name, content := range files {
		full := filepath.Join(u.dir, name)
		require.NoError(u.t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(u.t, os.WriteFile(full, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(u.t, err)
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(u.t, err)
	return hash.String()
}

func (u *upstream) tag(name string) {
	u.t.Helper()
	hash, err := u.repo.ResolveRevision("HEAD")
	require.NoError(u.t, err)
	_, err = u.repo.CreateTag(name, *hash, nil)
	require.NoError(u.t, err)
}

func newMirror(t *testing.T) (*gitrepo.MirrorStore, *cas.Store) {
	t.Helper()
	store, err := cas.NewStore(filepath.Join(t.TempDir(), "store", "v1"), nil)
	require.NoError(t, err)
	mirror, err := gitrepo.NewMirrorStore(filepath.Join(t.TempDir(), "mirrors"), store, nil)
	require.NoError(t, err)
	return mirror, store
}

func TestMirror_UpdateResolveCheckout(t *testing.T) {
	up := newUpstream(t)
	rev := up.commit(map[string]string{"src/lib.c": "int x = 1;"}, "initial")
	up.tag("v1.0.0")

	mirror, store := newMirror(t)
	ctx := context.Background()

	require.NoError(t, mirror.Update(ctx, up.dir))

	resolved, err := mirror.ResolveRef(ctx, up.dir, domain.RefTag, "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, rev, resolved)

	treeHash, err := mirror.Checkout(ctx, up.dir, resolved)
	require.NoError(t, err)

	tree, err := store.GetTree(treeHash)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 1)
	assert.Equal(t, "src/lib.c", tree.Entries[0].Path)

	content, err := store.Get(tree.Entries[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, "int x = 1;", string(content))
}

func TestMirror_IncrementalUpdatePicksUpNewTags(t *testing.T) {
	up := newUpstream(t)
	up.commit(map[string]string{"a.txt": "one"}, "first")
	up.tag("v1.0.0")

	mirror, _ := newMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Update(ctx, up.dir))

	tags, err := mirror.Tags(ctx, up.dir)
	require.NoError(t, err)
	require.Len(t, tags, 1)

	// New upstream work appears after the next update.
	up.commit(map[string]string{"a.txt": "two"}, "second")
	up.tag("v1.1.0")
	require.NoError(t, mirror.Update(ctx, up.dir))

	tags, err = mirror.Tags(ctx, up.dir)
	require.NoError(t, err)
	require.Len(t, tags, 2)

	versions := map[string]bool{}
	for _, tag := range tags {
		versions[tag.Version.String()] = true
	}
	assert.True(t, versions["1.0.0"])
	assert.True(t, versions["1.1.0"])
}

func TestMirror_NonSemverTagsSkipped(t *testing.T) {
	up := newUpstream(t)
	up.commit(map[string]string{"a.txt": "content"}, "first")
	up.tag("v1.0.0")
	up.tag("nightly")

	mirror, _ := newMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Update(ctx, up.dir))

	tags, err := mirror.Tags(ctx, up.dir)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "v1.0.0", tags[0].Name)
}

func TestMirror_ResolveBranch(t *testing.T) {
	up := newUpstream(t)
	first := up.commit(map[string]string{"a.txt": "one"}, "first")

	mirror, _ := newMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Update(ctx, up.dir))

	resolved, err := mirror.ResolveRef(ctx, up.dir, domain.RefBranch, "master")
	require.NoError(t, err)
	assert.Equal(t, first, resolved)

	// The mirror lags upstream until the next update.
	second := up.commit(map[string]string{"a.txt": "two"}, "second")
	resolved, err = mirror.ResolveRef(ctx, up.dir, domain.RefBranch, "master")
	require.NoError(t, err)
	assert.Equal(t, first, resolved)

	require.NoError(t, mirror.Update(ctx, up.dir))
	resolved, err = mirror.ResolveRef(ctx, up.dir, domain.RefBranch, "master")
	require.NoError(t, err)
	assert.Equal(t, second, resolved)
}

func TestMirror_UnknownRef(t *testing.T) {
	up := newUpstream(t)
	up.commit(map[string]string{"a.txt": "one"}, "first")

	mirror, _ := newMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Update(ctx, up.dir))

	_, err := mirror.ResolveRef(ctx, up.dir, domain.RefTag, "v9.9.9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRefNotFound))
}

func TestMirror_IdenticalContentDeduplicates(t *testing.T) {
	upA := newUpstream(t)
	upA.commit(map[string]string{"shared.c": "same bytes"}, "a")
	upB := newUpstream(t)
	upB.commit(map[string]string{"shared.c": "same bytes"}, "b")

	mirror, store := newMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Update(ctx, upA.dir))
	require.NoError(t, mirror.Update(ctx, upB.dir))

	revA, err := mirror.ResolveRef(ctx, upA.dir, domain.RefBranch, "master")
	require.NoError(t, err)
	revB, err := mirror.ResolveRef(ctx, upB.dir, domain.RefBranch, "master")
	require.NoError(t, err)

	treeA, err := mirror.Checkout(ctx, upA.dir, revA)
	require.NoError(t, err)
	treeB, err := mirror.Checkout(ctx, upB.dir, revB)
	require.NoError(t, err)

	// Same file set, same blobs, same tree hash.
	assert.Equal(t, treeA, treeB)
	tree, err := store.GetTree(treeA)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 1)
}
