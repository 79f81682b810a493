package domain

import "sort"

// FetchEntry is the outcome of materializing a single resolved package.
type FetchEntry struct {
	Name     string
	Source   Source
	Revision string
	// TreeHash is the content hash of the stored source tree. Empty for path
	// sources, which are linked live rather than snapshotted.
	TreeHash string
	// Cached reports that no network work was needed.
	Cached bool
	Err    error
}

// FetchReport collects the per-package outcomes of a fetch run. All packages
// are attempted even when some fail, so one run surfaces every fetch error.
type FetchReport struct {
	Entries []FetchEntry
}

// Add appends an entry. Safe only from a single goroutine.
func (r *FetchReport) Add(e FetchEntry) {
	r.Entries = append(r.Entries, e)
}

// Sort orders the entries by package name.
func (r *FetchReport) Sort() {
	sort.Slice(r.Entries, func(i, j int) bool {
		return r.Entries[i].Name < r.Entries[j].Name
	})
}

// Entry returns the entry for a package name.
func (r *FetchReport) Entry(name string) (FetchEntry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return FetchEntry{}, false
}

// Failed returns the entries whose fetch errored, sorted by name.
func (r *FetchReport) Failed() []FetchEntry {
	var out []FetchEntry
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
