package domain

// ArtifactKey identifies a compiled artifact by everything that influences its
// bytes. Two builds with equal keys are interchangeable; any field changing
// produces a different key.
type ArtifactKey struct {
	// Package and Version identify what was built.
	Package string
	Version string
	// SourceHash is the content hash of the source tree that was compiled.
	SourceHash string
	// Toolchain is the compiler identity, e.g. "gc-1.25.3".
	Toolchain string
	// Platform is the target os/arch pair.
	Platform string
	// Configuration is the build profile, e.g. "release".
	Configuration string
	// Flags are the build flags in effect. Order is not significant.
	Flags []string
	// DependencyHashes are the artifact fingerprints of direct dependencies.
	// Order is not significant.
	DependencyHashes []string
}
