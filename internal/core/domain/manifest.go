package domain

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// ManifestFileName is the file every package declares itself in.
const ManifestFileName = "gale.yaml"

// Dependency is a single requirement declared by a manifest: a package name,
// the versions that are acceptable, and where the content comes from.
type Dependency struct {
	Name       InternedString
	Constraint Constraint
	Source     Source

	// Inherited marks a dependency whose constraint and source were taken from
	// the workspace dependency table rather than declared inline.
	Inherited bool
}

// Manifest is the parsed declaration of a single package.
type Manifest struct {
	Name    InternedString
	Version *semver.Version

	// Dependencies is keyed by package name.
	Dependencies map[string]Dependency

	// Overrides pin a transitive package to an exact version regardless of
	// what the dependency graph asks for. Root manifests only.
	Overrides map[string]*semver.Version

	// Constraints narrow the acceptable range of a package anywhere in the
	// graph without introducing a dependency on it. Root manifests only.
	Constraints map[string]Constraint

	// Workspace is set on manifests that declare a workspace root.
	Workspace *WorkspaceConfig

	// Dir is the directory the manifest was loaded from.
	Dir string
}

// DependencyNames returns the declared dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorkspaceConfig declares workspace membership and the shared dependency table.
type WorkspaceConfig struct {
	// Members are glob patterns, relative to the workspace root, naming member
	// package directories.
	Members []string
	// Exclude removes directories matched by Members.
	Exclude []string
	// Dependencies is the shared table members inherit from via `workspace: true`.
	Dependencies map[string]Dependency
}

// Workspace is a set of packages resolved jointly against one dependency
// universe. Single-package projects are represented as a workspace whose only
// member is the root manifest.
type Workspace struct {
	Root    string
	Config  WorkspaceConfig
	Members []*Manifest

	// Overrides and Constraints are taken from the root manifest. Member-level
	// overrides are ignored so the workspace resolves against a single policy.
	Overrides   map[string]*semver.Version
	Constraints map[string]Constraint
}

// SinglePackage wraps a standalone manifest as a one-member workspace.
func SinglePackage(m *Manifest) *Workspace {
	return &Workspace{
		Root:        m.Dir,
		Members:     []*Manifest{m},
		Overrides:   m.Overrides,
		Constraints: m.Constraints,
	}
}

// Member returns the member manifest with the given package name.
func (w *Workspace) Member(name string) (*Manifest, bool) {
	for _, m := range w.Members {
		if m.Name.String() == name {
			return m, true
		}
	}
	return nil, false
}

// MemberNames returns the member package names in sorted order.
func (w *Workspace) MemberNames() []string {
	names := make([]string, 0, len(w.Members))
	for _, m := range w.Members {
		names = append(names, m.Name.String())
	}
	sort.Strings(names)
	return names
}
