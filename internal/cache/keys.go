package cache

import "strings"

// versionSentinel stands in for "no version" so unversioned and versioned
// lookups of the same product never collide.
const versionSentinel = "-"

// Key derives the deterministic cache key for a normalized product name and
// optional version. The name is lowercased so formatting differences that
// survived normalization still map to one entry.
func Key(normalizedName, version string) string {
	name := strings.ToLower(strings.TrimSpace(normalizedName))
	v := strings.TrimSpace(version)
	if v == "" {
		v = versionSentinel
	}
	return name + "@" + v
}
