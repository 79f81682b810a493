package artifact_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/gale/internal/adapters/artifact"
	"go.trai.ch/gale/internal/core/domain"
)

func baseKey() domain.ArtifactKey {
	return domain.ArtifactKey{
		Package:          "liba",
		Version:          "1.2.0",
		SourceHash:       "aabbcc",
		Toolchain:        "gcc-13.2",
		Platform:         "linux/amd64",
		Configuration:    "release",
		Flags:            []string{"-O2", "-flto"},
		DependencyHashes: []string{"dep1", "dep2"},
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	assert.Equal(t, artifact.Fingerprint(baseKey()), artifact.Fingerprint(baseKey()))
}

func TestFingerprint_OrderInsensitive(t *testing.T) {
	shuffled := baseKey()
	shuffled.Flags = []string{"-flto", "-O2"}
	shuffled.DependencyHashes = []string{"dep2", "dep1"}
	assert.Equal(t, artifact.Fingerprint(baseKey()), artifact.Fingerprint(shuffled))
}

func TestFingerprint_EveryFieldMatters(t *testing.T) {
	mutations := map[string]func(*domain.ArtifactKey){
		"package":       func(k *domain.ArtifactKey) { k.Package = "libb" },
		"version":       func(k *domain.ArtifactKey) { k.Version = "1.2.1" },
		"source hash":   func(k *domain.ArtifactKey) { k.SourceHash = "ddeeff" },
		"toolchain":     func(k *domain.ArtifactKey) { k.Toolchain = "clang-18" },
		"platform":      func(k *domain.ArtifactKey) { k.Platform = "darwin/arm64" },
		"configuration": func(k *domain.ArtifactKey) { k.Configuration = "debug" },
		"flag added":    func(k *domain.ArtifactKey) { k.Flags = append(k.Flags, "-g") },
		"flag removed":  func(k *domain.ArtifactKey) { k.Flags = k.Flags[:1] },
		"dep hash":      func(k *domain.ArtifactKey) { k.DependencyHashes[0] = "depX" },
	}

	original := artifact.Fingerprint(baseKey())
	for name, mutate := range mutations {
		key := baseKey()
		key.Flags = append([]string(nil), key.Flags...)
		key.DependencyHashes = append([]string(nil), key.DependencyHashes...)
		mutate(&key)
		assert.NotEqual(t, original, artifact.Fingerprint(key), "mutation %q did not change the fingerprint", name)
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	a := baseKey()
	a.Package = "lib"
	a.Version = "a1.2.0"
	// Moving a character across the field boundary must not collide.
	assert.NotEqual(t, artifact.Fingerprint(baseKey()), artifact.Fingerprint(a))
}

func newCache(t *testing.T, maxBytes int64, maxAge time.Duration) (*artifact.Cache, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "artifacts")
	cache, err := artifact.NewCache(root, maxBytes, maxAge, nil)
	require.NoError(t, err)
	return cache, root
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newCache(t, 0, 0)
	payload := []byte("compiled object code")

	require.NoError(t, cache.Store(baseKey(), payload))

	got, hit, err := cache.Lookup(baseKey())
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, payload, got)
}

func TestCache_Miss(t *testing.T) {
	cache, _ := newCache(t, 0, 0)

	_, hit, err := cache.Lookup(baseKey())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_StoreOverwrites(t *testing.T) {
	cache, _ := newCache(t, 0, 0)

	require.NoError(t, cache.Store(baseKey(), []byte("first")))
	require.NoError(t, cache.Store(baseKey(), []byte("second")))

	got, hit, err := cache.Lookup(baseKey())
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("second"), got)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, root := newCache(t, 0, 0)
	require.NoError(t, cache.Store(baseKey(), []byte("payload")))

	path := filepath.Join(root, artifact.Fingerprint(baseKey())+".zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd at all"), 0o644))

	_, hit, err := cache.Lookup(baseKey())
	require.NoError(t, err)
	assert.False(t, hit)

	// The broken entry is gone and the next store repairs the slot.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	require.NoError(t, cache.Store(baseKey(), []byte("fresh")))

	got, hit, err := cache.Lookup(baseKey())
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("fresh"), got)
}

func keyFor(pkg string) domain.ArtifactKey {
	k := baseKey()
	k.Package = pkg
	return k
}

func touch(t *testing.T, root string, key domain.ArtifactKey, at time.Time) {
	t.Helper()
	path := filepath.Join(root, artifact.Fingerprint(key)+".zst")
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestCache_EvictByAge(t *testing.T) {
	cache, root := newCache(t, 0, time.Hour)

	require.NoError(t, cache.Store(keyFor("old"), []byte("old")))
	require.NoError(t, cache.Store(keyFor("fresh"), []byte("fresh")))
	touch(t, root, keyFor("old"), time.Now().Add(-2*time.Hour))

	removed, err := cache.Evict()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, hit, err := cache.Lookup(keyFor("old"))
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = cache.Lookup(keyFor("fresh"))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_EvictLeastRecentlyUsedFirst(t *testing.T) {
	seeded, root := newCache(t, 0, 0)

	now := time.Now()
	require.NoError(t, seeded.Store(keyFor("a"), []byte("aaaa")))
	require.NoError(t, seeded.Store(keyFor("b"), []byte("bbbb")))
	require.NoError(t, seeded.Store(keyFor("c"), []byte("cccc")))
	touch(t, root, keyFor("a"), now.Add(-3*time.Minute))
	touch(t, root, keyFor("b"), now.Add(-1*time.Minute))
	touch(t, root, keyFor("c"), now.Add(-2*time.Minute))

	// Equal payload lengths give equal entry sizes; budget for exactly one.
	info, err := os.Stat(filepath.Join(root, artifact.Fingerprint(keyFor("a"))+".zst"))
	require.NoError(t, err)

	cache, err := artifact.NewCache(root, info.Size(), 0, nil)
	require.NoError(t, err)

	removed, err := cache.Evict()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, hit, err := cache.Lookup(keyFor("a"))
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = cache.Lookup(keyFor("c"))
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = cache.Lookup(keyFor("b"))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_EvictWithoutPolicies(t *testing.T) {
	cache, _ := newCache(t, 0, 0)
	require.NoError(t, cache.Store(baseKey(), []byte("payload")))

	removed, err := cache.Evict()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
