package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

// Microsoft queries a product lifecycle export: one row per product release
// cycle, carrying mainstream (support) and extended (EOL) end dates.
type Microsoft struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewMicrosoft builds the Microsoft lifecycle client.
func NewMicrosoft(baseURL string, client *http.Client, userAgent string) *Microsoft {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Microsoft{baseURL: baseURL, userAgent: userAgent, http: client}
}

type microsoftSearchResponse struct {
	Results []microsoftRow `json:"results"`
}

type microsoftRow struct {
	Product        string `json:"product"`
	Cycle          string `json:"cycle"`
	SupportEndDate string `json:"supportEndDate"`
	EOLDate        string `json:"eolDate"`
	LatestBuild    string `json:"latestBuild"`
	LTS            *bool  `json:"lts"`
}

func (s *Microsoft) ID() string { return "microsoft" }

func (s *Microsoft) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	searchURL := fmt.Sprintf("%s/api/lifecycle/search?name=%s", s.baseURL, url.QueryEscape(q.Normalized))

	var response microsoftSearchResponse
	if err := getJSON(ctx, s.http, s.userAgent, searchURL, &response); err != nil {
		return nil, err
	}

	row, specificity, ok := pickMicrosoftRow(response.Results, q)
	if !ok {
		return nil, fmt.Errorf("%w: lifecycle export has no row for %q", sentinel.ErrNotFound, q.Normalized)
	}

	return &domain.Candidate{
		ResolverID:    s.ID(),
		Cycle:         row.Cycle,
		EOLDate:       parseDate(row.EOLDate),
		SupportDate:   parseDate(row.SupportEndDate),
		LatestVersion: row.LatestBuild,
		LTS:           row.LTS,
		Hint:          resolver.HintFor(specificity),
	}, nil
}

// pickMicrosoftRow keeps rows whose product name overlaps the query base
// name, then takes the most version-specific one. With no query version the
// first name match wins (the export lists newest cycles first).
func pickMicrosoftRow(rows []microsoftRow, q domain.Query) (microsoftRow, int, bool) {
	baseName := strings.ToLower(q.BaseName)

	bestIdx, bestSpec := -1, resolver.MatchNone
	for i, row := range rows {
		product := strings.ToLower(row.Product)
		if baseName != "" && !strings.Contains(product, baseName) && !strings.Contains(baseName, product) {
			continue
		}
		if q.Version == "" {
			return row, resolver.MatchNone, true
		}
		if spec := resolver.MatchSpecificity(q.Version, row.Cycle); spec > bestSpec {
			bestIdx, bestSpec = i, spec
		}
	}
	if bestIdx < 0 || bestSpec == resolver.MatchNone {
		return microsoftRow{}, resolver.MatchNone, false
	}
	return rows[bestIdx], bestSpec, true
}

func (s *Microsoft) Health(ctx context.Context) error {
	var response microsoftSearchResponse
	return getJSON(ctx, s.http, s.userAgent, s.baseURL+"/api/lifecycle/search?name=windows", &response)
}
