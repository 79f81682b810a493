// Package artifact caches compiled build outputs keyed by their fingerprint.
package artifact

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/gale/internal/core/domain"
)

// Fingerprint derives the cache key string for an artifact. It is a
// deterministic function of every key field; unordered fields are sorted
// before hashing so that declaration order never changes the fingerprint.
func Fingerprint(key domain.ArtifactKey) string {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(key.Package)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(key.Version)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(key.SourceHash)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(key.Toolchain)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(key.Platform)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.WriteString(key.Configuration)
	_, _ = hasher.Write([]byte{0})

	hashSorted(hasher, key.Flags)
	hashSorted(hasher, key.DependencyHashes)

	return fmt.Sprintf("%016x", hasher.Sum64())
}

func hashSorted(hasher *xxhash.Digest, values []string) {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)

	for _, v := range sorted {
		_, _ = hasher.WriteString(v)
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0})
}
