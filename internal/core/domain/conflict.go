package domain

import (
	"fmt"
	"strings"
)

// RequirementOrigin identifies what imposed a requirement on a package.
type RequirementOrigin string

const (
	// OriginManifest marks a requirement declared by a project manifest.
	OriginManifest RequirementOrigin = "manifest"
	// OriginDependency marks a requirement introduced by a resolved package.
	OriginDependency RequirementOrigin = "dependency"
	// OriginOverride marks an exact pin from the overrides table.
	OriginOverride RequirementOrigin = "override"
	// OriginConstraint marks a graph-wide entry from the constraints table.
	OriginConstraint RequirementOrigin = "constraint"
)

// Requirement is one constraint on a package together with who imposed it.
// Requirer is "pkg@version" for dependency requirements and the member package
// name for manifest requirements.
type Requirement struct {
	Origin     RequirementOrigin
	Requirer   string
	Package    InternedString
	Constraint Constraint
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s (%s) requires %s %s",
		r.Requirer, r.Origin, r.Package.String(), r.Constraint.String())
}

// Conflict is the terminal failure of dependency resolution: a package for
// which no version satisfies the active requirements. Requirements holds the
// shortest requirement set known to be jointly unsatisfiable, so callers can
// render the chain however they like.
type Conflict struct {
	Package      InternedString
	Requirements []Requirement

	// Candidates are the versions that were considered, newest first. Empty
	// when the provider knows no versions at all.
	Candidates []string
}

// Error implements error with a compact single-line rendering. Presentation
// layers should prefer walking Requirements directly.
func (c *Conflict) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no version of %s satisfies", c.Package.String())
	for i, req := range c.Requirements {
		if i > 0 {
			sb.WriteString(" and")
		}
		fmt.Fprintf(&sb, " %s (from %s %s)", req.Constraint.String(), req.Origin, req.Requirer)
	}
	return sb.String()
}

// DriftEntry is one mismatch between a lockfile and a fresh resolution.
type DriftEntry struct {
	Name string
	// Locked is empty when the package is new; Resolved is empty when the
	// package disappeared from the resolution.
	Locked   string
	Resolved string
}

// Drift is returned by frozen-mode validation when the lockfile no longer
// matches what resolution would produce.
type Drift struct {
	Entries []DriftEntry
}

// Error implements error.
func (d *Drift) Error() string {
	var sb strings.Builder
	sb.WriteString("lockfile is out of date:")
	for _, e := range d.Entries {
		switch {
		case e.Locked == "":
			fmt.Fprintf(&sb, " %s missing (want %s);", e.Name, e.Resolved)
		case e.Resolved == "":
			fmt.Fprintf(&sb, " %s no longer needed (locked %s);", e.Name, e.Locked)
		default:
			fmt.Fprintf(&sb, " %s locked %s but resolves to %s;", e.Name, e.Locked, e.Resolved)
		}
	}
	return strings.TrimSuffix(sb.String(), ";")
}
