package domain

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// SelectionReason records why the resolver picked a package's version.
type SelectionReason string

const (
	// SelectedOverride marks a version pinned by the override table.
	SelectedOverride SelectionReason = "override"
	// SelectedLocked marks a version kept from the lockfile hint.
	SelectedLocked SelectionReason = "locked"
	// SelectedHighest marks the newest version compatible with the active
	// requirements.
	SelectedHighest SelectionReason = "highest"
)

// ResolvedPackage is one entry in a resolution graph: a package name bound to
// exactly one version and the source its content comes from.
type ResolvedPackage struct {
	Name    InternedString
	Version *semver.Version
	Source  Source
	Reason  SelectionReason
}

// Edge records that From depends on To under the given constraint. Edges from
// the project itself use the member package name as From.
type Edge struct {
	From       InternedString
	To         InternedString
	Constraint Constraint
}

// ResolutionGraph is the immutable output of dependency resolution: every
// package pinned to a single version, with annotated dependency edges.
// Iteration order is deterministic.
type ResolutionGraph struct {
	packages map[InternedString]ResolvedPackage
	names    []InternedString
	edges    []Edge
}

// NewResolutionGraph builds a graph from resolved packages and edges. It
// rejects duplicate package names and cycles.
func NewResolutionGraph(packages []ResolvedPackage, edges []Edge) (*ResolutionGraph, error) {
	byName := make(map[InternedString]ResolvedPackage, len(packages))
	names := make([]InternedString, 0, len(packages))
	for _, pkg := range packages {
		if prev, ok := byName[pkg.Name]; ok {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(ErrDuplicatePackage, "building resolution graph"), "package", pkg.Name.String()),
				"versions", []string{prev.Version.String(), pkg.Version.String()},
			)
		}
		byName[pkg.Name] = pkg
		names = append(names, pkg.Name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From.String() < sorted[j].From.String()
		}
		if sorted[i].To != sorted[j].To {
			return sorted[i].To.String() < sorted[j].To.String()
		}
		return sorted[i].Constraint.String() < sorted[j].Constraint.String()
	})

	g := &ResolutionGraph{packages: byName, names: names, edges: sorted}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Package returns the resolved entry for a package name.
func (g *ResolutionGraph) Package(name InternedString) (ResolvedPackage, bool) {
	pkg, ok := g.packages[name]
	return pkg, ok
}

// Packages returns every resolved package, sorted by name.
func (g *ResolutionGraph) Packages() []ResolvedPackage {
	out := make([]ResolvedPackage, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, g.packages[name])
	}
	return out
}

// Edges returns the dependency edges, sorted by (From, To, Constraint).
func (g *ResolutionGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Dependents returns the names of packages that depend on name, sorted.
func (g *ResolutionGraph) Dependents(name InternedString) []InternedString {
	var out []InternedString
	for _, e := range g.edges {
		if e.To == name {
			out = append(out, e.From)
		}
	}
	return out
}

// Len returns the number of resolved packages.
func (g *ResolutionGraph) Len() int {
	return len(g.names)
}

// Fingerprint returns a stable digest of the full resolution, suitable for
// change detection across runs.
func (g *ResolutionGraph) Fingerprint() string {
	h := sha256.New()
	for _, name := range g.names {
		pkg := g.packages[name]
		fmt.Fprintf(h, "%s@%s:%s\n", name.String(), pkg.Version.String(), pkg.Source.String())
	}
	for _, e := range g.edges {
		fmt.Fprintf(h, "%s->%s:%s\n", e.From.String(), e.To.String(), e.Constraint.String())
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// checkAcyclic runs an iterative three-color DFS over the edges. Edges whose
// endpoints are not resolved packages (workspace members) are ignored.
func (g *ResolutionGraph) checkAcyclic() error {
	adj := make(map[InternedString][]InternedString)
	for _, e := range g.edges {
		if _, ok := g.packages[e.From]; !ok {
			continue
		}
		if _, ok := g.packages[e.To]; !ok {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[InternedString]int, len(g.names))

	var visit func(node InternedString, path []string) error
	visit = func(node InternedString, path []string) error {
		colors[node] = gray
		path = append(path, node.String())
		for _, next := range adj[node] {
			switch colors[next] {
			case gray:
				return zerr.With(
					zerr.With(zerr.Wrap(ErrCycleDetected, "validating resolution graph"), "package", next.String()),
					"path", append(path, next.String()),
				)
			case white:
				if err := visit(next, path); err != nil {
					return err
				}
			}
		}
		colors[node] = black
		return nil
	}

	for _, name := range g.names {
		if colors[name] == white {
			if err := visit(name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
