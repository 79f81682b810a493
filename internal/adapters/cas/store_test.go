package cas_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/gale/internal/adapters/cas"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports/mocks"
)

func newStore(t *testing.T) *cas.Store {
	t.Helper()
	s, err := cas.NewStore(filepath.Join(t.TempDir(), "store", "v1"), nil)
	require.NoError(t, err)
	return s
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	s := newStore(t)

	hash, err := s.Put([]byte("package source file"))
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	data, err := s.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("package source file"), data)
	assert.True(t, s.Contains(hash))
}

func TestStore_PutIsIdempotent(t *testing.T) {
	s := newStore(t)

	h1, err := s.Put([]byte("same bytes"))
	require.NoError(t, err)
	h2, err := s.Put([]byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := s.Put([]byte("different bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestStore_MissingBlob(t *testing.T) {
	s := newStore(t)

	_, err := s.Get("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlobNotFound))
}

func TestStore_CorruptBlobTreatedAsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).Times(1)

	root := filepath.Join(t.TempDir(), "store", "v1")
	s, err := cas.NewStore(root, log)
	require.NoError(t, err)

	hash, err := s.Put([]byte("original content"))
	require.NoError(t, err)

	// Flip the bytes on disk behind the store's back.
	blobPath := filepath.Join(root, "files", hash[:2], hash)
	require.NoError(t, os.Chmod(blobPath, 0o644))
	require.NoError(t, os.WriteFile(blobPath, []byte("tampered"), 0o644))

	_, err = s.Get(hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBlobNotFound))

	// The corrupt blob is quarantined so the next Put repopulates it.
	assert.False(t, s.Contains(hash))
	_, err = s.Put([]byte("original content"))
	require.NoError(t, err)
	assert.True(t, s.Contains(hash))
}

func TestStore_LinkSharesContent(t *testing.T) {
	s := newStore(t)
	dir := t.TempDir()

	hash, err := s.Put([]byte("linked content"))
	require.NoError(t, err)

	dest := filepath.Join(dir, "deps", "pkg", "main.c")
	require.NoError(t, s.Link(hash, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("linked content"), data)

	// Linking over an existing file replaces it.
	require.NoError(t, s.Link(hash, dest))
}

func TestStore_TreeRoundtrip(t *testing.T) {
	s := newStore(t)

	srcHash, err := s.Put([]byte("int main() {}"))
	require.NoError(t, err)
	scriptHash, err := s.Put([]byte("#!/bin/sh\n"))
	require.NoError(t, err)

	tree := &domain.Tree{Entries: []domain.TreeEntry{
		{Path: "src/main.c", Hash: srcHash, Mode: 0o644},
		{Path: "build.sh", Hash: scriptHash, Mode: 0o755},
	}}
	treeHash, err := s.PutTree(tree)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, s.LinkTree(treeHash, dest))

	data, err := os.ReadFile(filepath.Join(dest, "src", "main.c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("int main() {}"), data)

	info, err := os.Stat(filepath.Join(dest, "build.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "executable bit should survive")
}

func TestStore_LinkTreeKeepsBlobReadOnly(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store", "v1")
	s, err := cas.NewStore(root, nil)
	require.NoError(t, err)

	scriptHash, err := s.Put([]byte("#!/bin/sh\nexit 0\n"))
	require.NoError(t, err)
	treeHash, err := s.PutTree(&domain.Tree{Entries: []domain.TreeEntry{
		{Path: "run.sh", Hash: scriptHash, Mode: 0o755},
	}})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, s.LinkTree(treeHash, dest))

	// The materialized file is executable but not writable; the hard link
	// shares the stored blob's inode, so a write bit here would unseal the
	// blob for every project linking it.
	info, err := os.Stat(filepath.Join(dest, "run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)
	assert.Zero(t, info.Mode()&0o222)

	blobInfo, err := os.Stat(filepath.Join(root, "files", scriptHash[:2], scriptHash))
	require.NoError(t, err)
	assert.Zero(t, blobInfo.Mode()&0o222, "stored blob must stay sealed")
}

func TestStore_IdenticalTreesDeduplicate(t *testing.T) {
	s := newStore(t)

	h, err := s.Put([]byte("shared"))
	require.NoError(t, err)
	t1, err := s.PutTree(&domain.Tree{Entries: []domain.TreeEntry{{Path: "a", Hash: h, Mode: 0o644}}})
	require.NoError(t, err)
	t2, err := s.PutTree(&domain.Tree{Entries: []domain.TreeEntry{{Path: "a", Hash: h, Mode: 0o644}}})
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestStore_GCRetainsTreesAndTheirBlobs(t *testing.T) {
	s := newStore(t)

	keptBlob, err := s.Put([]byte("kept source"))
	require.NoError(t, err)
	treeHash, err := s.PutTree(&domain.Tree{Entries: []domain.TreeEntry{
		{Path: "kept.c", Hash: keptBlob, Mode: 0o644},
	}})
	require.NoError(t, err)

	orphan, err := s.Put([]byte("orphaned source"))
	require.NoError(t, err)

	removed, err := s.GC(map[string]struct{}{treeHash: {}})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.True(t, s.Contains(treeHash))
	assert.True(t, s.Contains(keptBlob))
	assert.False(t, s.Contains(orphan))
}

func TestStore_GCSkipsLinkedBlobs(t *testing.T) {
	s := newStore(t)

	hash, err := s.Put([]byte("still in use"))
	require.NoError(t, err)
	require.NoError(t, s.Link(hash, filepath.Join(t.TempDir(), "in-use.c")))

	removed, err := s.GC(map[string]struct{}{})
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, s.Contains(hash))
}
