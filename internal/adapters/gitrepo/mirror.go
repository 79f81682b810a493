// Package gitrepo maintains bare local mirrors of upstream repositories and
// materializes their trees into the blob store.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/Masterminds/semver/v3"
	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.trai.ch/zerr"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

// MirrorStore keeps one bare mirror per upstream URL under its root
// directory. Mirrors are created on first use and updated incrementally
// afterwards, so repeated fetches only transfer new objects.
type MirrorStore struct {
	root   string
	store  ports.BlobStore
	logger ports.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMirrorStore opens (or creates) the mirror root, typically
// <cacheDir>/mirrors.
func NewMirrorStore(root string, store ports.BlobStore, logger ports.Logger) (*MirrorStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "creating mirror root"), "dir", root)
	}
	return &MirrorStore{
		root:   root,
		store:  store,
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

// dir maps a URL to a stable mirror directory: a readable sanitized basename
// plus a hash of the full URL to keep distinct upstreams apart.
func (m *MirrorStore) dir(url string) string {
	base := sanitizeName(path.Base(strings.TrimSuffix(url, ".git")))
	if base == "" {
		base = "repo"
	}
	return filepath.Join(m.root, fmt.Sprintf("%s-%016x", base, xxhash.Sum64String(url)))
}

func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return strings.Trim(sb.String(), "-.")
}

func (m *MirrorStore) lockFor(url string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[url]
	if !ok {
		l = &sync.Mutex{}
		m.locks[url] = l
	}
	return l
}

// Update implements ports.Mirror.
func (m *MirrorStore) Update(ctx context.Context, url string) error {
	lock := m.lockFor(url)
	lock.Lock()
	defer lock.Unlock()

	dir := m.dir(url)
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if m.logger != nil {
			m.logger.Debug("cloning mirror for " + url)
		}
		_, err = git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
			URL:    url,
			Mirror: true,
			Tags:   git.AllTags,
		})
		if err != nil {
			// A failed clone leaves a half-initialized directory behind.
			_ = os.RemoveAll(dir)
			return m.classify(err, url, "cloning mirror")
		}
		return nil
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, "opening mirror"), "url", url)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{"+refs/*:refs/*"},
		Tags:       git.AllTags,
		Force:      true,
		Prune:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return m.classify(err, url, "updating mirror")
}

// ResolveRef implements ports.Mirror. It works entirely against the local
// mirror; call Update first to see new upstream refs.
func (m *MirrorStore) ResolveRef(_ context.Context, url string, kind domain.RefKind, ref string) (string, error) {
	repo, err := m.open(url)
	if err != nil {
		return "", err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		werr := zerr.Wrap(domain.ErrRefNotFound, "resolving ref")
		werr = zerr.With(werr, "url", url)
		werr = zerr.With(werr, "refKind", string(kind))
		return "", zerr.With(werr, "ref", ref)
	}
	return hash.String(), nil
}

// Tags implements ports.Mirror. Tag names with or without a leading "v" are
// accepted; anything that does not parse as semver is skipped.
func (m *MirrorStore) Tags(_ context.Context, url string) ([]ports.TagRef, error) {
	repo, err := m.open(url)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "listing tags"), "url", url)
	}

	var tags []ports.TagRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		version, err := semver.NewVersion(strings.TrimPrefix(name, "v"))
		if err != nil {
			return nil
		}

		revision := ref.Hash()
		// Annotated tags point at a tag object; peel to the commit.
		if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
			revision = tagObj.Target
		}
		tags = append(tags, ports.TagRef{
			Name:     name,
			Version:  version,
			Revision: revision.String(),
		})
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "iterating tags"), "url", url)
	}
	return tags, nil
}

// Checkout implements ports.Mirror: every file of the tree at revision is
// stored as a blob and the resulting tree manifest hash is returned.
func (m *MirrorStore) Checkout(_ context.Context, url, revision string) (string, error) {
	repo, err := m.open(url)
	if err != nil {
		return "", err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return "", zerr.With(
			zerr.With(zerr.Wrap(domain.ErrRefNotFound, "resolving revision"), "url", url),
			"revision", revision,
		)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return "", zerr.With(
			zerr.With(zerr.Wrap(err, "loading commit"), "url", url),
			"revision", revision,
		)
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "loading tree"), "revision", revision)
	}

	manifest := &domain.Tree{}
	err = tree.Files().ForEach(func(f *object.File) error {
		contents, err := f.Contents()
		if err != nil {
			return zerr.With(zerr.Wrap(err, "reading file from mirror"), "path", f.Name)
		}
		blobHash, err := m.store.Put([]byte(contents))
		if err != nil {
			return err
		}

		mode := uint32(0o644)
		if f.Mode == filemode.Executable {
			mode = 0o755
		}
		manifest.Entries = append(manifest.Entries, domain.TreeEntry{
			Path: f.Name,
			Hash: blobHash,
			Mode: mode,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return m.store.PutTree(manifest)
}

func (m *MirrorStore) open(url string) (*git.Repository, error) {
	repo, err := git.PlainOpen(m.dir(url))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "opening mirror"), "url", url)
	}
	return repo, nil
}

// classify separates failures worth retrying from permanent ones. Auth and
// not-found errors are permanent; timeouts and broken connections are tagged
// transient for the fetch engine's backoff.
func (m *MirrorStore) classify(err error, url, msg string) error {
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return zerr.With(
			zerr.With(zerr.Wrap(domain.ErrTransientNetwork, msg), "url", url),
			"cause", err.Error(),
		)
	}
	return zerr.With(zerr.Wrap(err, msg), "url", url)
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrRepositoryNotFound):
		return false
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ ports.Mirror = (*MirrorStore)(nil)
