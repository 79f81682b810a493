package domain

// SourceKind identifies where a dependency's content comes from.
type SourceKind string

const (
	// SourceGit is a dependency fetched from a git repository.
	SourceGit SourceKind = "git"
	// SourcePath is a dependency materialized from a local directory.
	SourcePath SourceKind = "path"
	// SourceRegistry is a dependency served by a named registry index.
	SourceRegistry SourceKind = "registry"
)

// RefKind identifies how a git ref should be interpreted.
type RefKind string

const (
	// RefTag pins a dependency to a tag. Tags are assumed immutable once cached.
	RefTag RefKind = "tag"
	// RefBranch follows the tip of a branch and must be re-resolved on update.
	RefBranch RefKind = "branch"
	// RefRevision pins a dependency to an exact commit.
	RefRevision RefKind = "revision"
)

// Source describes where a package's content is fetched from. It is a value
// object: two sources are interchangeable iff they compare equal.
type Source struct {
	Kind SourceKind `yaml:"kind"`

	// URL is the repository URL for git sources.
	URL string `yaml:"url,omitempty"`
	// RefKind and Ref select the revision for git sources. Empty for tag-ranged
	// dependencies whose ref is chosen during resolution.
	RefKind RefKind `yaml:"refKind,omitempty"`
	Ref     string  `yaml:"ref,omitempty"`

	// Path is the directory for local path sources, relative to the manifest.
	Path string `yaml:"path,omitempty"`

	// Registry is the registry name for registry sources.
	Registry string `yaml:"registry,omitempty"`
}

// GitSource returns a git source. kind and ref may be empty when the
// dependency selects a tag through its version constraint.
func GitSource(url string, kind RefKind, ref string) Source {
	return Source{Kind: SourceGit, URL: url, RefKind: kind, Ref: ref}
}

// PathSource returns a local path source.
func PathSource(path string) Source {
	return Source{Kind: SourcePath, Path: path}
}

// RegistrySource returns a registry source.
func RegistrySource(name string) Source {
	return Source{Kind: SourceRegistry, Registry: name}
}

// IsZero reports whether the source is unset.
func (s Source) IsZero() bool {
	return s == Source{}
}

// String renders a compact identity for logs and lockfiles.
func (s Source) String() string {
	switch s.Kind {
	case SourceGit:
		if s.Ref != "" {
			return s.URL + "#" + string(s.RefKind) + "=" + s.Ref
		}
		return s.URL
	case SourcePath:
		return "path:" + s.Path
	case SourceRegistry:
		return "registry:" + s.Registry
	default:
		return string(s.Kind)
	}
}
