package resolver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version-match specificity levels, highest first. Sources use these to pick
// the best cycle for a query; the aggregator uses them to break ties between
// candidates from equal-priority sources.
const (
	MatchExact  = 3
	MatchPrefix = 2
	MatchMajor  = 1
	MatchNone   = 0
)

// MatchSpecificity rates how precisely a source cycle matches the query
// version. Exact string equality ranks highest, then a cycle that is a
// dotted prefix of the version ("3.11" for "3.11.5"), then a bare major
// match ("18" for "18.17.0").
func MatchSpecificity(version, cycle string) int {
	if version == "" || cycle == "" {
		return MatchNone
	}
	if strings.EqualFold(version, cycle) {
		return MatchExact
	}
	// A dotted cycle that prefixes the version ("3.11" for "3.11.5") is more
	// specific than a bare major cycle ("3"), which the semver branch rates.
	if strings.Contains(cycle, ".") && strings.HasPrefix(version, cycle+".") {
		return MatchPrefix
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return MatchNone
	}
	c, err := semver.NewVersion(cycle)
	if err != nil {
		return MatchNone
	}
	if v.Major() == c.Major() {
		if v.Minor() == c.Minor() {
			return MatchPrefix
		}
		return MatchMajor
	}
	return MatchNone
}

// HintFor maps a specificity level to a resolver confidence hint.
func HintFor(specificity int) float64 {
	switch specificity {
	case MatchExact:
		return 0.9
	case MatchPrefix:
		return 0.7
	case MatchMajor:
		return 0.6
	default:
		return 0.5
	}
}
