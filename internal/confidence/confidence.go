// Package confidence scores resolved answers and maps scores to cache TTLs.
// The score expresses how much trust a resolution deserves given the shape
// of the query alone; the TTL tiers turn that trust into cache lifetime.
package confidence

import (
	"regexp"
	"strings"
	"time"
)

// Tier is a discrete cache-lifetime bucket selected by confidence range.
type Tier string

const (
	TierShort  Tier = "short"
	TierMedium Tier = "medium"
	TierLong   Tier = "long"
)

// Scoring model. Base plus bonuses, clamped to [0, 1].
const (
	baseScore      = 0.5
	wellKnownBonus = 0.3
	versionBonus   = 0.2
	yearBonus      = 0.1

	mediumThreshold = 0.5
	longThreshold   = 0.8
)

var yearVersion = regexp.MustCompile(`^(?:19|20)\d{2}$`)

// Policy carries the tuning data for scoring and TTL assignment: the
// well-known enterprise product patterns and the tier durations. Both are
// deployment policy, not correctness invariants, and are overridable from
// configuration.
type Policy struct {
	// WellKnownPatterns are matched as case-insensitive substrings of the
	// normalized name.
	WellKnownPatterns []string

	ShortTTL  time.Duration
	MediumTTL time.Duration
	LongTTL   time.Duration
}

// DefaultPolicy returns the built-in pattern list and tier durations.
func DefaultPolicy() Policy {
	return Policy{
		WellKnownPatterns: []string{
			"windows server",
			"windows 10",
			"windows 11",
			"sql server",
			"exchange server",
			"sharepoint server",
			".net framework",
			"red hat enterprise linux",
			"ubuntu",
			"debian",
			"centos",
			"vmware esxi",
			"oracle database",
			"python",
			"node.js",
			"postgresql",
			"mysql",
		},
		ShortTTL:  6 * time.Hour,
		MediumTTL: 72 * time.Hour,
		LongTTL:   28 * 24 * time.Hour,
	}
}

// Score computes the confidence for a resolved answer. Pure: same inputs,
// same score, no I/O. resolverID is part of the scoring contract and is
// recorded on the result; the current model derives no weight from it.
func (p Policy) Score(normalizedName, version, resolverID string) float64 {
	_ = resolverID

	score := baseScore
	lowered := strings.ToLower(normalizedName)
	for _, pattern := range p.WellKnownPatterns {
		if strings.Contains(lowered, pattern) {
			score += wellKnownBonus
			break
		}
	}
	if version != "" {
		score += versionBonus
		if yearVersion.MatchString(version) {
			score += yearBonus
		}
	}

	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

// Tier maps a confidence value to its TTL tier: below 0.5 is low-trust and
// re-checked soon, 0.8 and above is trusted and kept the longest.
func (p Policy) Tier(confidence float64) Tier {
	switch {
	case confidence < mediumThreshold:
		return TierShort
	case confidence < longThreshold:
		return TierMedium
	default:
		return TierLong
	}
}

// TTL returns the cache lifetime for a confidence value.
func (p Policy) TTL(confidence float64) time.Duration {
	switch p.Tier(confidence) {
	case TierShort:
		return p.ShortTTL
	case TierMedium:
		return p.MediumTTL
	default:
		return p.LongTTL
	}
}
