package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/zerr"
)

const entryExt = ".zst"

// Cache implements ports.ArtifactCache as a directory of zstd-compressed
// entries, one file per fingerprint. An entry's mtime doubles as its
// last-access marker for eviction.
type Cache struct {
	root     string
	maxBytes int64
	maxAge   time.Duration
	logger   ports.Logger

	mu      sync.RWMutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ ports.ArtifactCache = (*Cache)(nil)

// NewCache creates the cache directory if needed. maxBytes and maxAge bound
// eviction; zero disables the respective policy.
func NewCache(root string, maxBytes int64, maxAge time.Duration, logger ports.Logger) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "creating artifact cache dir"), "dir", root)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, zerr.Wrap(err, "creating zstd encoder")
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, zerr.Wrap(err, "creating zstd decoder")
	}
	return &Cache{
		root:     root,
		maxBytes: maxBytes,
		maxAge:   maxAge,
		logger:   logger,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

func (c *Cache) entryPath(key domain.ArtifactKey) string {
	return filepath.Join(c.root, Fingerprint(key)+entryExt)
}

// Lookup returns the cached artifact for key. Corrupted entries are removed
// and reported as a miss, never as an error.
func (c *Cache) Lookup(key domain.ArtifactKey) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := c.entryPath(key)
	compressed, err := os.ReadFile(path) //nolint:gosec // path is derived from the fingerprint
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, zerr.With(zerr.Wrap(err, "reading artifact"), "key", Fingerprint(key))
	}

	data, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("discarding corrupt artifact " + filepath.Base(path))
		}
		_ = os.Remove(path)
		return nil, false, nil
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)
	return data, true, nil
}

// Store compresses and persists an artifact, replacing any prior entry for
// the key. The entry is staged and renamed so readers never observe a
// partial artifact.
func (c *Cache) Store(key domain.ArtifactKey, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	compressed := c.encoder.EncodeAll(data, nil)

	tmp, err := os.CreateTemp(c.root, "stage-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "staging artifact"), "key", Fingerprint(key))
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, "writing artifact"), "key", Fingerprint(key))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, "closing staged artifact"), "key", Fingerprint(key))
	}
	if err := os.Rename(tmpName, c.entryPath(key)); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, "publishing artifact"), "key", Fingerprint(key))
	}
	return nil
}

type entryInfo struct {
	path     string
	size     int64
	accessed time.Time
}

// Evict applies the age policy, then removes least-recently-used entries
// until the cache fits the size policy. Returns the number of entries
// removed.
func (c *Cache) Evict() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, total, err := c.scan()
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Time{}
	if c.maxAge > 0 {
		cutoff = time.Now().Add(-c.maxAge)
	}

	// Oldest access first.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessed.Before(entries[j].accessed)
	})

	for _, entry := range entries {
		expired := !cutoff.IsZero() && entry.accessed.Before(cutoff)
		oversize := c.maxBytes > 0 && total > c.maxBytes
		if !expired && !oversize {
			break
		}
		if err := os.Remove(entry.path); err != nil {
			return removed, zerr.With(zerr.Wrap(err, "evicting artifact"), "path", entry.path)
		}
		total -= entry.size
		removed++
	}
	return removed, nil
}

func (c *Cache) scan() ([]entryInfo, int64, error) {
	var (
		entries []entryInfo
		total   int64
	)
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != entryExt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, entryInfo{path: path, size: info.Size(), accessed: info.ModTime()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, zerr.With(zerr.Wrap(err, "scanning artifact cache"), "dir", c.root)
	}
	return entries, total, nil
}
