package domain

import "go.trai.ch/zerr"

var (
	// ErrManifestNotFound is returned when a directory contains no package manifest.
	ErrManifestNotFound = zerr.New("manifest not found")

	// ErrInvalidManifest is returned when a manifest file cannot be parsed or fails validation.
	ErrInvalidManifest = zerr.New("invalid manifest")

	// ErrPackageNotFound is returned when a version provider knows nothing about a package.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrDuplicatePackage is returned when a resolution graph would contain two
	// versions of the same package.
	ErrDuplicatePackage = zerr.New("duplicate package")

	// ErrCycleDetected is returned when the resolved dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrWorkspaceInheritance is returned when a member declares a workspace
	// dependency that the workspace dependency table does not define.
	ErrWorkspaceInheritance = zerr.New("workspace dependency not declared")

	// ErrBlobNotFound is returned when a content hash is not present in the blob store.
	// Corrupt blobs are quarantined and reported through this error as well, so
	// callers treat corruption as a plain miss.
	ErrBlobNotFound = zerr.New("blob not found")

	// ErrUnsupportedSource is returned when a dependency source kind has no fetch strategy.
	ErrUnsupportedSource = zerr.New("unsupported source")

	// ErrSourceMismatch is returned when two manifests declare the same package
	// name with different sources.
	ErrSourceMismatch = zerr.New("conflicting sources for package")

	// ErrTransientNetwork tags network failures that are worth retrying.
	// Authentication and not-found failures are never tagged with it.
	ErrTransientNetwork = zerr.New("transient network failure")

	// ErrFrozenWithoutLockfile is returned when a frozen install runs in a
	// project that has no lockfile to validate against.
	ErrFrozenWithoutLockfile = zerr.New("frozen install requires a lockfile")

	// ErrRefNotFound is returned when a git ref cannot be resolved in a mirror.
	ErrRefNotFound = zerr.New("ref not found")
)
