package source

import (
	"context"
	"fmt"
	"net/http"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

// Canonical queries an Ubuntu release manifest: one row per series with the
// standard support end and, for LTS series, the ESM window end.
type Canonical struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewCanonical builds the Ubuntu release manifest client.
func NewCanonical(baseURL string, client *http.Client, userAgent string) *Canonical {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Canonical{baseURL: baseURL, userAgent: userAgent, http: client}
}

type canonicalManifest struct {
	Releases []canonicalRelease `json:"releases"`
}

type canonicalRelease struct {
	Series             string `json:"series"`
	Codename           string `json:"codename"`
	LTS                bool   `json:"lts"`
	ReleaseDate        string `json:"releaseDate"`
	StandardSupportEnd string `json:"standardSupportEnd"`
	ESMEnd             string `json:"esmEnd"`
}

func (s *Canonical) ID() string { return "canonical" }

func (s *Canonical) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	var manifest canonicalManifest
	if err := getJSON(ctx, s.http, s.userAgent, s.baseURL+"/v1/releases", &manifest); err != nil {
		return nil, err
	}
	if len(manifest.Releases) == 0 {
		return nil, fmt.Errorf("%w: release manifest is empty", sentinel.ErrNotFound)
	}

	release, specificity, ok := pickCanonicalRelease(manifest.Releases, q.Version)
	if !ok {
		return nil, fmt.Errorf("%w: no series matches version %q", sentinel.ErrNotFound, q.Version)
	}

	// Standard support closes first; for LTS series the ESM window end is
	// the real end of life.
	eolDate := parseDate(release.ESMEnd)
	if eolDate == nil {
		eolDate = parseDate(release.StandardSupportEnd)
	}
	lts := release.LTS

	return &domain.Candidate{
		ResolverID:  s.ID(),
		Cycle:       release.Series,
		EOLDate:     eolDate,
		SupportDate: parseDate(release.StandardSupportEnd),
		LTS:         &lts,
		Hint:        resolver.HintFor(specificity),
	}, nil
}

func pickCanonicalRelease(releases []canonicalRelease, queryVersion string) (canonicalRelease, int, bool) {
	if queryVersion == "" {
		return releases[0], resolver.MatchNone, true
	}
	bestIdx, bestSpec := -1, resolver.MatchNone
	for i, release := range releases {
		if spec := resolver.MatchSpecificity(queryVersion, release.Series); spec > bestSpec {
			bestIdx, bestSpec = i, spec
		}
	}
	if bestIdx < 0 || bestSpec == resolver.MatchNone {
		return canonicalRelease{}, resolver.MatchNone, false
	}
	return releases[bestIdx], bestSpec, true
}

func (s *Canonical) Health(ctx context.Context) error {
	var manifest canonicalManifest
	return getJSON(ctx, s.http, s.userAgent, s.baseURL+"/v1/releases", &manifest)
}
