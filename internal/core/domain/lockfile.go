package domain

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// LockfileFormatVersion is the current on-disk lockfile schema version.
const LockfileFormatVersion = 1

// LockedPackage is one pinned entry in a lockfile: enough to reproduce the
// exact content of a resolved package without consulting the network.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   Source `yaml:"source"`
	Revision string `yaml:"revision,omitempty"`
	// Checksum is the content hash of the fetched source tree, prefixed with
	// the hash algorithm, e.g. "blake3:ab12...".
	Checksum string `yaml:"checksum,omitempty"`
}

// Lockfile is the persisted record of a prior resolution.
type Lockfile struct {
	FormatVersion int             `yaml:"version"`
	Packages      []LockedPackage `yaml:"packages"`
}

// Package returns the locked entry for a package name.
func (l *Lockfile) Package(name string) (LockedPackage, bool) {
	for _, p := range l.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return LockedPackage{}, false
}

// Pins returns the locked versions keyed by package name. Entries whose
// versions do not parse are skipped.
func (l *Lockfile) Pins() map[string]*semver.Version {
	pins := make(map[string]*semver.Version, len(l.Packages))
	for _, p := range l.Packages {
		v, err := semver.NewVersion(p.Version)
		if err != nil {
			continue
		}
		pins[p.Name] = v
	}
	return pins
}

// Sort orders the entries by package name. Lockfiles are always written sorted
// so diffs stay minimal.
func (l *Lockfile) Sort() {
	sort.Slice(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
}

// DiffKind classifies one entry of a lockfile diff.
type DiffKind string

const (
	// DiffAdded marks a package present only in the new lockfile.
	DiffAdded DiffKind = "added"
	// DiffRemoved marks a package present only in the old lockfile.
	DiffRemoved DiffKind = "removed"
	// DiffUpgraded marks a package whose version increased.
	DiffUpgraded DiffKind = "upgraded"
	// DiffDowngraded marks a package whose version decreased.
	DiffDowngraded DiffKind = "downgraded"
	// DiffChanged marks a package whose revision, source, or checksum changed
	// while the version stayed the same.
	DiffChanged DiffKind = "changed"
)

// DiffEntry is one changed package between two lockfiles.
type DiffEntry struct {
	Kind DiffKind
	Name string
	Old  LockedPackage
	New  LockedPackage
}

// LockfileDiff is the set of changes between two lockfiles, sorted by package name.
type LockfileDiff struct {
	Entries []DiffEntry
}

// Empty reports whether the two lockfiles were equivalent.
func (d LockfileDiff) Empty() bool {
	return len(d.Entries) == 0
}

// DiffLockfiles compares two lockfiles entry by entry. Either side may be nil,
// which is treated as an empty lockfile.
func DiffLockfiles(oldLock, newLock *Lockfile) LockfileDiff {
	oldByName := map[string]LockedPackage{}
	if oldLock != nil {
		for _, p := range oldLock.Packages {
			oldByName[p.Name] = p
		}
	}
	newByName := map[string]LockedPackage{}
	if newLock != nil {
		for _, p := range newLock.Packages {
			newByName[p.Name] = p
		}
	}

	names := make([]string, 0, len(oldByName)+len(newByName))
	for name := range oldByName {
		names = append(names, name)
	}
	for name := range newByName {
		if _, ok := oldByName[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var diff LockfileDiff
	for _, name := range names {
		oldPkg, inOld := oldByName[name]
		newPkg, inNew := newByName[name]
		switch {
		case !inOld:
			diff.Entries = append(diff.Entries, DiffEntry{Kind: DiffAdded, Name: name, New: newPkg})
		case !inNew:
			diff.Entries = append(diff.Entries, DiffEntry{Kind: DiffRemoved, Name: name, Old: oldPkg})
		case oldPkg != newPkg:
			diff.Entries = append(diff.Entries, DiffEntry{
				Kind: classifyChange(oldPkg, newPkg),
				Name: name,
				Old:  oldPkg,
				New:  newPkg,
			})
		}
	}
	return diff
}

func classifyChange(oldPkg, newPkg LockedPackage) DiffKind {
	oldV, errOld := semver.NewVersion(oldPkg.Version)
	newV, errNew := semver.NewVersion(newPkg.Version)
	if errOld != nil || errNew != nil || oldV.Equal(newV) {
		return DiffChanged
	}
	if newV.GreaterThan(oldV) {
		return DiffUpgraded
	}
	return DiffDowngraded
}
