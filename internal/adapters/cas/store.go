// Package cas implements the content-addressed blob store backing fetched
// sources: immutable blobs sharded by hash prefix, with copy-free linking
// into project trees.
package cas

import (
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const (
	filesDir = "files"
	tmpDir   = "tmp"

	lockStripes = 64
)

// Store is a filesystem blob store addressed by BLAKE3 content hashes. Blobs
// are immutable once published: writers stage into a temp file and rename, so
// readers never observe partial content. A Store value is safe for concurrent
// use; per-hash striped locks serialize same-blob publication.
type Store struct {
	root   string
	logger ports.Logger
	locks  [lockStripes]sync.Mutex
}

// NewStore opens (or creates) the store rooted at root. Typical layout is
// <cacheDir>/store/v1.
func NewStore(root string, logger ports.Logger) (*Store, error) {
	for _, dir := range []string{filepath.Join(root, filesDir), filepath.Join(root, tmpDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "creating store layout"), "dir", dir)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

// HashBytes returns the hex BLAKE3 hash of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.root, filesDir, hash[:2], hash)
}

func (s *Store) stripe(hash string) *sync.Mutex {
	b, err := hex.DecodeString(hash[:2])
	if err != nil || len(b) == 0 {
		return &s.locks[0]
	}
	return &s.locks[int(b[0])%lockStripes]
}

// Put stores a blob and returns its content hash. Storing bytes that are
// already present is a cheap no-op.
func (s *Store) Put(data []byte) (string, error) {
	hash := HashBytes(data)
	if s.Contains(hash) {
		return hash, nil
	}

	mu := s.stripe(hash)
	mu.Lock()
	defer mu.Unlock()

	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", zerr.With(zerr.Wrap(err, "creating blob shard"), "hash", hash)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "blob-*")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "staging blob"), "hash", hash)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", zerr.With(zerr.Wrap(err, "writing staged blob"), "hash", hash)
	}
	if err := tmp.Close(); err != nil {
		return "", zerr.With(zerr.Wrap(err, "closing staged blob"), "hash", hash)
	}
	if err := os.Chmod(tmp.Name(), 0o444); err != nil {
		return "", zerr.With(zerr.Wrap(err, "sealing staged blob"), "hash", hash)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", zerr.With(zerr.Wrap(err, "publishing blob"), "hash", hash)
	}
	return hash, nil
}

// Get returns a blob's bytes after verifying them against the hash. A blob
// whose bytes no longer match is quarantined and reported as missing, so
// corruption degrades to a re-fetch instead of an install failure.
func (s *Store) Get(hash string) ([]byte, error) {
	if len(hash) < 2 {
		return nil, zerr.With(zerr.Wrap(domain.ErrBlobNotFound, "reading blob"), "hash", hash)
	}

	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrBlobNotFound, "reading blob"), "hash", hash)
		}
		return nil, zerr.With(zerr.Wrap(err, "reading blob"), "hash", hash)
	}

	if HashBytes(data) != hash {
		s.quarantine(hash)
		return nil, zerr.With(
			zerr.With(zerr.Wrap(domain.ErrBlobNotFound, "blob failed verification"), "hash", hash),
			"corrupt", true,
		)
	}
	return data, nil
}

// quarantine removes a corrupt blob so the next fetch repopulates it.
func (s *Store) quarantine(hash string) {
	if s.logger != nil {
		s.logger.Warn("quarantining corrupt blob " + hash)
	}
	mu := s.stripe(hash)
	mu.Lock()
	defer mu.Unlock()
	_ = os.Remove(s.blobPath(hash))
}

// Contains reports whether a blob is present.
func (s *Store) Contains(hash string) bool {
	if len(hash) < 2 {
		return false
	}
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

// Link materializes a blob at dest. Same-filesystem destinations get a hard
// link to the immutable blob; cross-device destinations fall back to a copy.
func (s *Store) Link(hash, dest string) error {
	if !s.Contains(hash) {
		return zerr.With(zerr.Wrap(domain.ErrBlobNotFound, "linking blob"), "hash", hash)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "creating link target dir"), "dest", dest)
	}
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "replacing link target"), "dest", dest)
	}

	src := s.blobPath(hash)
	if err := os.Link(src, dest); err == nil {
		return nil
	}
	return s.copyBlob(src, dest, hash)
}

func (s *Store) copyBlob(src, dest, hash string) error {
	in, err := os.Open(src)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "opening blob for copy"), "hash", hash)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "creating copy target"), "dest", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return zerr.With(zerr.Wrap(err, "copying blob"), "hash", hash)
	}
	return out.Close()
}

// PutTree stores a tree manifest and returns the tree hash. Entries are
// sorted first so equal trees always serialize to the same blob.
func (s *Store) PutTree(tree *domain.Tree) (string, error) {
	tree.Sort()
	data, err := yaml.Marshal(tree)
	if err != nil {
		return "", zerr.Wrap(err, "serializing tree manifest")
	}
	return s.Put(data)
}

// GetTree loads a tree manifest by hash.
func (s *Store) GetTree(hash string) (*domain.Tree, error) {
	data, err := s.Get(hash)
	if err != nil {
		return nil, err
	}
	var tree domain.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "parsing tree manifest"), "hash", hash)
	}
	return &tree, nil
}

// LinkTree materializes a stored tree under destDir, restoring executable bits.
func (s *Store) LinkTree(hash, destDir string) error {
	tree, err := s.GetTree(hash)
	if err != nil {
		return err
	}
	for _, entry := range tree.Entries {
		dest := filepath.Join(destDir, filepath.FromSlash(entry.Path))
		if err := s.Link(entry.Hash, dest); err != nil {
			return zerr.With(
				zerr.With(zerr.Wrap(err, "linking tree entry"), "tree", hash),
				"path", entry.Path,
			)
		}
		if entry.Mode&0o111 != 0 {
			// dest usually shares the sealed blob's inode, so write bits
			// must never come back with the executable bits.
			mode := os.FileMode(entry.Mode) & 0o777 &^ 0o222
			if err := os.Chmod(dest, mode); err != nil {
				return zerr.With(zerr.Wrap(err, "restoring file mode"), "path", entry.Path)
			}
		}
	}
	return nil
}

// GC removes blobs not reachable from retained. Tree hashes in retained are
// expanded to the blobs they reference. Blobs still hard-linked into a
// project (link count above one) are kept regardless.
func (s *Store) GC(retained map[string]struct{}) (int, error) {
	keep := map[string]struct{}{}
	for hash := range retained {
		keep[hash] = struct{}{}
		tree, err := s.GetTree(hash)
		if err != nil {
			continue
		}
		for _, blob := range tree.BlobHashes() {
			keep[blob] = struct{}{}
		}
	}

	removed := 0
	root := filepath.Join(s.root, filesDir)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		hash := d.Name()
		if _, ok := keep[hash]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if linkCount(info) > 1 {
			return nil
		}

		mu := s.stripe(hash)
		mu.Lock()
		defer mu.Unlock()
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, zerr.Wrap(err, "walking store")
	}
	return removed, nil
}

var _ ports.BlobStore = (*Store)(nil)
