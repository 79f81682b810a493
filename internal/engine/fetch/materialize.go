package fetch

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"go.trai.ch/gale/internal/core/domain"
)

// DepsDir is the project-relative directory dependencies are linked into.
const DepsDir = ".gale/deps"

// Materialize links every successfully fetched package into the project's
// dependency directory. Stored trees are linked out of the blob store without
// copying; path packages are symlinked to their live directories. Stale
// entries from prior runs are removed first.
func (e *Engine) Materialize(report *domain.FetchReport, projectRoot string) error {
	root := filepath.Join(projectRoot, filepath.FromSlash(DepsDir))
	if err := os.RemoveAll(root); err != nil {
		return zerr.With(zerr.Wrap(err, "clearing dependency dir"), "dir", root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "creating dependency dir"), "dir", root)
	}

	for _, entry := range report.Entries {
		if entry.Err != nil {
			continue
		}
		dest := filepath.Join(root, entry.Name)

		switch {
		case entry.TreeHash != "":
			if err := e.store.LinkTree(entry.TreeHash, dest); err != nil {
				return zerr.With(
					zerr.With(zerr.Wrap(err, "linking package tree"), "package", entry.Name),
					"tree", entry.TreeHash,
				)
			}
		case entry.Source.Kind == domain.SourcePath:
			target := entry.Source.Path
			if !filepath.IsAbs(target) {
				target = filepath.Join(projectRoot, target)
			}
			if err := os.Symlink(target, dest); err != nil {
				return zerr.With(
					zerr.With(zerr.Wrap(err, "linking path package"), "package", entry.Name),
					"path", target,
				)
			}
		}
	}
	return nil
}
