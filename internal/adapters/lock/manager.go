// Package lock persists resolution results as a YAML lockfile.
package lock

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// LockfileName is the lockfile's name inside a project root.
const LockfileName = "gale.lock"

// Manager implements ports.LockManager.
type Manager struct {
	logger ports.Logger
}

var _ ports.LockManager = (*Manager)(nil)

func NewManager(logger ports.Logger) *Manager {
	return &Manager{logger: logger}
}

// Read loads the lockfile of the project rooted at dir. Returns nil, nil
// when no lockfile exists.
func (m *Manager) Read(dir string) (*domain.Lockfile, error) {
	path := filepath.Join(dir, LockfileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is the project's lockfile
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "reading lockfile"), "path", path)
	}

	var lock domain.Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "parsing lockfile"), "path", path)
	}
	if lock.FormatVersion > domain.LockfileFormatVersion {
		return nil, zerr.With(
			zerr.With(zerr.New("lockfile format is newer than this tool"), "path", path),
			"format", lock.FormatVersion,
		)
	}
	return &lock, nil
}

// Write builds a lockfile from a resolution and its fetch report and persists
// it atomically under dir. The file is staged and renamed so a crash never
// leaves a partial lockfile behind.
func (m *Manager) Write(dir string, graph *domain.ResolutionGraph, report *domain.FetchReport) (*domain.Lockfile, error) {
	lock := Build(graph, report)

	data, err := yaml.Marshal(lock)
	if err != nil {
		return nil, zerr.Wrap(err, "serializing lockfile")
	}

	tmp, err := os.CreateTemp(dir, ".gale.lock-*")
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "staging lockfile"), "dir", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return nil, zerr.Wrap(err, "writing lockfile")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, zerr.Wrap(err, "closing staged lockfile")
	}
	path := filepath.Join(dir, LockfileName)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return nil, zerr.With(zerr.Wrap(err, "publishing lockfile"), "path", path)
	}
	return lock, nil
}

// Build assembles the lockfile for a resolution without touching the
// filesystem. Path-source packages carry no revision or checksum; their
// content is read live.
func Build(graph *domain.ResolutionGraph, report *domain.FetchReport) *domain.Lockfile {
	lock := &domain.Lockfile{FormatVersion: domain.LockfileFormatVersion}
	for _, pkg := range graph.Packages() {
		entry := domain.LockedPackage{
			Name:    pkg.Name.String(),
			Version: pkg.Version.String(),
			Source:  pkg.Source,
		}
		if pkg.Source.Kind != domain.SourcePath && report != nil {
			if fetched, ok := report.Entry(entry.Name); ok && fetched.Err == nil {
				entry.Revision = fetched.Revision
				if fetched.TreeHash != "" {
					entry.Checksum = "blake3:" + fetched.TreeHash
				}
			}
		}
		lock.Packages = append(lock.Packages, entry)
	}
	lock.Sort()
	return lock
}

// Check compares a fresh resolution against the lockfile and returns a
// *domain.Drift error when they disagree. The lockfile is never modified.
func (m *Manager) Check(graph *domain.ResolutionGraph, lock *domain.Lockfile) error {
	if lock == nil {
		return domain.ErrFrozenWithoutLockfile
	}

	resolved := map[string]domain.ResolvedPackage{}
	for _, pkg := range graph.Packages() {
		resolved[pkg.Name.String()] = pkg
	}

	var drift domain.Drift
	seen := map[string]bool{}
	for _, locked := range lock.Packages {
		seen[locked.Name] = true
		pkg, ok := resolved[locked.Name]
		if !ok {
			drift.Entries = append(drift.Entries, domain.DriftEntry{Name: locked.Name, Locked: locked.Version})
			continue
		}
		if pkg.Version.String() != locked.Version || pkg.Source.String() != locked.Source.String() {
			drift.Entries = append(drift.Entries, domain.DriftEntry{
				Name:     locked.Name,
				Locked:   locked.Version,
				Resolved: pkg.Version.String(),
			})
		}
	}
	for name, pkg := range resolved {
		if !seen[name] {
			drift.Entries = append(drift.Entries, domain.DriftEntry{Name: name, Resolved: pkg.Version.String()})
		}
	}
	if len(drift.Entries) == 0 {
		return nil
	}

	sort.Slice(drift.Entries, func(i, j int) bool {
		return drift.Entries[i].Name < drift.Entries[j].Name
	})
	if m.logger != nil {
		m.logger.Warn(drift.Error())
	}
	return &drift
}
