package source

import (
	"context"
	"fmt"
	"net/http"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

// cycleRecord is one release cycle in the endoflife.date catalogue shape.
type cycleRecord struct {
	Cycle       string   `json:"cycle"`
	ReleaseDate string   `json:"releaseDate"`
	EOL         flexDate `json:"eol"`
	Support     flexDate `json:"support"`
	Latest      string   `json:"latest"`
	LTS         flexBool `json:"lts"`
}

func (r cycleRecord) candidate(resolverID string, specificity int) *domain.Candidate {
	return &domain.Candidate{
		ResolverID:    resolverID,
		Cycle:         r.Cycle,
		EOLDate:       r.EOL.Date,
		SupportDate:   r.Support.Date,
		LatestVersion: r.Latest,
		LTS:           r.LTS.Value,
		Hint:          resolver.HintFor(specificity),
	}
}

// EndOfLife is the universal fallback source. The endoflife.date catalogue
// covers operating systems, runtimes, databases, and appliances, so it is
// consulted for every query regardless of keyword matches.
type EndOfLife struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewEndOfLife builds the fallback client. userAgent may be empty.
func NewEndOfLife(baseURL string, client *http.Client, userAgent string) *EndOfLife {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &EndOfLife{baseURL: baseURL, userAgent: userAgent, http: client}
}

func (s *EndOfLife) ID() string { return "endoflife" }

func (s *EndOfLife) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	slug := slugFor(q.BaseName)
	if slug == "" {
		return nil, fmt.Errorf("%w: name %q has no catalogue slug", sentinel.ErrNotFound, q.Normalized)
	}

	var cycles []cycleRecord
	url := fmt.Sprintf("%s/api/%s.json", s.baseURL, slug)
	if err := getJSON(ctx, s.http, s.userAgent, url, &cycles); err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, fmt.Errorf("%w: catalogue has no cycles for %q", sentinel.ErrNotFound, slug)
	}

	// No version: the catalogue lists newest cycles first.
	if q.Version == "" {
		return cycles[0].candidate(s.ID(), resolver.MatchNone), nil
	}

	best, specificity := -1, resolver.MatchNone
	for i, cycle := range cycles {
		if m := resolver.MatchSpecificity(q.Version, cycle.Cycle); m > specificity {
			best, specificity = i, m
		}
	}
	if best < 0 || specificity == resolver.MatchNone {
		return nil, fmt.Errorf("%w: no cycle matches version %q for %q", sentinel.ErrNotFound, q.Version, slug)
	}
	return cycles[best].candidate(s.ID(), specificity), nil
}

func (s *EndOfLife) Health(ctx context.Context) error {
	var products []string
	return getJSON(ctx, s.http, s.userAgent, s.baseURL+"/api/all.json", &products)
}
