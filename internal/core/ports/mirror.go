package ports

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/gale/internal/core/domain"
)

// TagRef is a repository tag whose name parses as a semantic version.
type TagRef struct {
	Name     string
	Version  *semver.Version
	Revision string
}

// Mirror maintains canonical local mirrors of upstream git repositories and
// materializes their content into the blob store.
//
//go:generate mockgen -source=mirror.go -destination=mocks/mock_mirror.go -package=mocks
type Mirror interface {
	// Update creates the mirror for url if absent, or incrementally fetches
	// new objects into it. Transient failures carry domain.ErrTransientNetwork.
	Update(ctx context.Context, url string) error

	// ResolveRef resolves a tag, branch, or revision to a full commit hash
	// using only the local mirror. Returns domain.ErrRefNotFound when the
	// mirror has no such ref.
	ResolveRef(ctx context.Context, url string, kind domain.RefKind, ref string) (string, error)

	// Tags lists the mirror's semver-parsable tags, unsorted.
	Tags(ctx context.Context, url string) ([]TagRef, error)

	// Checkout stores the source tree at revision into the blob store and
	// returns its tree hash.
	Checkout(ctx context.Context, url, revision string) (string, error)
}
