package domain

import "sort"

// TreeEntry is one file inside a stored source tree. Hash refers to a blob in
// the content store; Mode carries the executable bit.
type TreeEntry struct {
	Path string `yaml:"path"`
	Hash string `yaml:"hash"`
	Mode uint32 `yaml:"mode"`
}

// Tree is the manifest of a source tree stored in the content store: a sorted
// list of (path, blob hash) pairs. The tree's own hash is the hash of its
// canonical serialization, so identical trees deduplicate to a single entry.
type Tree struct {
	Entries []TreeEntry `yaml:"entries"`
}

// Sort orders entries by path. Trees are always serialized sorted so equal
// content yields equal hashes.
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return t.Entries[i].Path < t.Entries[j].Path
	})
}

// BlobHashes returns the distinct blob hashes the tree references.
func (t *Tree) BlobHashes() []string {
	seen := make(map[string]struct{}, len(t.Entries))
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if _, ok := seen[e.Hash]; ok {
			continue
		}
		seen[e.Hash] = struct{}{}
		out = append(out, e.Hash)
	}
	sort.Strings(out)
	return out
}
