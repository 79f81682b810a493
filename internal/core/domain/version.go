package domain

import (
	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Constraint is a semantic version range a dependency must satisfy.
// The zero value matches every version.
type Constraint struct {
	raw string
	set *semver.Constraints
}

// ParseConstraint parses a range expression such as ">=1.2.0, <2.0.0" or "^1.4".
func ParseConstraint(raw string) (Constraint, error) {
	set, err := semver.NewConstraint(raw)
	if err != nil {
		return Constraint{}, zerr.With(zerr.Wrap(err, "parsing version constraint"), "constraint", raw)
	}
	return Constraint{raw: raw, set: set}, nil
}

// ExactConstraint returns a constraint satisfied only by v.
func ExactConstraint(v *semver.Version) Constraint {
	set, _ := semver.NewConstraint("=" + v.String())
	return Constraint{raw: "=" + v.String(), set: set}
}

// AnyVersion returns the constraint that matches every version.
func AnyVersion() Constraint {
	return Constraint{}
}

// Check reports whether v satisfies the constraint.
func (c Constraint) Check(v *semver.Version) bool {
	if c.set == nil {
		return true
	}
	return c.set.Check(v)
}

// IsAny reports whether the constraint matches every version.
func (c Constraint) IsAny() bool {
	return c.set == nil
}

// String returns the original range expression, or "*" for the any-version constraint.
func (c Constraint) String() string {
	if c.set == nil {
		return "*"
	}
	return c.raw
}

// MarshalText implements encoding.TextMarshaler.
func (c Constraint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Constraint) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == "*" {
		*c = Constraint{}
		return nil
	}
	parsed, err := ParseConstraint(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
