package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSpecificity(t *testing.T) {
	tests := []struct {
		name    string
		version string
		cycle   string
		want    int
	}{
		{name: "exact year", version: "2016", cycle: "2016", want: MatchExact},
		{name: "exact dotted", version: "22.04", cycle: "22.04", want: MatchExact},
		{name: "exact is case insensitive", version: "8.6.EUS", cycle: "8.6.eus", want: MatchExact},
		{name: "dotted cycle prefixes version", version: "3.11.5", cycle: "3.11", want: MatchPrefix},
		{name: "major minor semver overlap", version: "8.6.0", cycle: "8.6", want: MatchPrefix},
		{name: "bare major cycle", version: "18.17.0", cycle: "18", want: MatchMajor},
		{name: "different majors", version: "3.11.5", cycle: "2.7", want: MatchNone},
		{name: "different years", version: "2016", cycle: "2019", want: MatchNone},
		{name: "empty version", version: "", cycle: "2016", want: MatchNone},
		{name: "empty cycle", version: "2016", cycle: "", want: MatchNone},
		{name: "unparseable version", version: "vNext", cycle: "1", want: MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchSpecificity(tt.version, tt.cycle))
		})
	}
}

func TestHintFor(t *testing.T) {
	assert.Greater(t, HintFor(MatchExact), HintFor(MatchPrefix))
	assert.Greater(t, HintFor(MatchPrefix), HintFor(MatchMajor))
	assert.Greater(t, HintFor(MatchMajor), HintFor(MatchNone))
}
