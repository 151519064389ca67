package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

// Runtime targets language runtimes and databases with release-train cycles
// (Python 3.11, Node 18, PostgreSQL 14). Unlike the fallback it fetches the
// one cycle derived from the query version instead of the whole product
// history, so it needs a version to work with.
type Runtime struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewRuntime builds the runtime-cycle client. It shares the catalogue base
// URL with the fallback source.
func NewRuntime(baseURL string, client *http.Client, userAgent string) *Runtime {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Runtime{baseURL: baseURL, userAgent: userAgent, http: client}
}

func (s *Runtime) ID() string { return "runtime" }

func (s *Runtime) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	if q.Version == "" {
		return nil, fmt.Errorf("%w: runtime lookup needs a version", sentinel.ErrNotFound)
	}
	slug := slugFor(q.BaseName)
	if slug == "" {
		return nil, fmt.Errorf("%w: name %q has no catalogue slug", sentinel.ErrNotFound, q.Normalized)
	}
	cycle := cycleFromVersion(q.Version)

	var record cycleRecord
	url := fmt.Sprintf("%s/api/%s/%s.json", s.baseURL, slug, cycle)
	if err := getJSON(ctx, s.http, s.userAgent, url, &record); err != nil {
		return nil, err
	}
	if record.Cycle == "" {
		// Single-cycle responses omit the cycle field.
		record.Cycle = cycle
	}
	return record.candidate(s.ID(), resolver.MatchSpecificity(q.Version, record.Cycle)), nil
}

func (s *Runtime) Health(ctx context.Context) error {
	var products []string
	return getJSON(ctx, s.http, s.userAgent, s.baseURL+"/api/all.json", &products)
}

// cycleFromVersion derives the release-train cycle a version belongs to:
// major.minor for dotted versions, the version itself otherwise.
func cycleFromVersion(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return version
}
