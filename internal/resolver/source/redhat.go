package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

// RedHat queries a product life-cycle feed shaped like the Red Hat customer
// portal API: products carry versions, versions carry named phases, each
// phase with its end date.
type RedHat struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewRedHat builds the Red Hat life-cycle client.
func NewRedHat(baseURL string, client *http.Client, userAgent string) *RedHat {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &RedHat{baseURL: baseURL, userAgent: userAgent, http: client}
}

type redhatResponse struct {
	Data []redhatProduct `json:"data"`
}

type redhatProduct struct {
	Name     string          `json:"name"`
	Versions []redhatVersion `json:"versions"`
}

type redhatVersion struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Phases []redhatPhase `json:"phases"`
}

type redhatPhase struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Phase names that close a product's life, most authoritative first.
var redhatEOLPhases = []string{"end of life", "retirement", "extended life phase", "maintenance support"}

func (s *RedHat) ID() string { return "redhat" }

func (s *RedHat) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	lookupURL := fmt.Sprintf("%s/api/v1/products?name=%s", s.baseURL, url.QueryEscape(q.BaseName))

	var response redhatResponse
	if err := getJSON(ctx, s.http, s.userAgent, lookupURL, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: no products match %q", sentinel.ErrNotFound, q.BaseName)
	}

	version, specificity, ok := pickRedHatVersion(response.Data[0].Versions, q.Version)
	if !ok {
		return nil, fmt.Errorf("%w: no version matches %q for %q", sentinel.ErrNotFound, q.Version, q.BaseName)
	}

	return &domain.Candidate{
		ResolverID:  s.ID(),
		Cycle:       version.Name,
		EOLDate:     version.phaseDate(redhatEOLPhases...),
		SupportDate: version.phaseDate("full support"),
		Hint:        resolver.HintFor(specificity),
	}, nil
}

// pickRedHatVersion takes the most version-specific entry, or the first
// entry (newest) when the query carries no version.
func pickRedHatVersion(versions []redhatVersion, queryVersion string) (redhatVersion, int, bool) {
	if len(versions) == 0 {
		return redhatVersion{}, resolver.MatchNone, false
	}
	if queryVersion == "" {
		return versions[0], resolver.MatchNone, true
	}
	bestIdx, bestSpec := -1, resolver.MatchNone
	for i, v := range versions {
		if spec := resolver.MatchSpecificity(queryVersion, v.Name); spec > bestSpec {
			bestIdx, bestSpec = i, spec
		}
	}
	if bestIdx < 0 || bestSpec == resolver.MatchNone {
		return redhatVersion{}, resolver.MatchNone, false
	}
	return versions[bestIdx], bestSpec, true
}

// phaseDate returns the end date of the first phase whose name contains any
// of the given fragments, in the order given.
func (v redhatVersion) phaseDate(fragments ...string) *time.Time {
	for _, fragment := range fragments {
		for _, phase := range v.Phases {
			if strings.Contains(strings.ToLower(phase.Name), fragment) {
				if t := parseDate(phase.Date); t != nil {
					return t
				}
			}
		}
	}
	return nil
}

func (s *RedHat) Health(ctx context.Context) error {
	var response redhatResponse
	return getJSON(ctx, s.http, s.userAgent, s.baseURL+"/api/v1/products?name=Red%20Hat%20Enterprise%20Linux", &response)
}
