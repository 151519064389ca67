package handler

import (
	"time"

	"sunset/internal/audit"
	"sunset/internal/domain"
)

// ResolutionResponse is the wire shape for one resolved answer.
type ResolutionResponse struct {
	Name          string     `json:"name"`
	Version       string     `json:"version,omitempty"`
	Status        string     `json:"status"`
	EOLDate       *time.Time `json:"eol_date,omitempty"`
	SupportDate   *time.Time `json:"support_date,omitempty"`
	LatestVersion string     `json:"latest_version,omitempty"`
	Confidence    float64    `json:"confidence"`
	Source        string     `json:"source,omitempty"`
	ComputedAt    time.Time  `json:"computed_at"`
}

// BatchResolveResponse is the HTTP response for POST /v1/eol/resolve-batch.
type BatchResolveResponse struct {
	Results []*ResolutionResponse `json:"results"`
}

// FromResolved converts a domain resolution to an HTTP response.
func FromResolved(r *domain.ResolvedEOL) *ResolutionResponse {
	return &ResolutionResponse{
		Name:          r.ProductName,
		Version:       r.Version,
		Status:        string(r.Status),
		EOLDate:       r.EOLDate,
		SupportDate:   r.SupportDate,
		LatestVersion: r.LatestVersion,
		Confidence:    r.Confidence,
		Source:        r.ContributingResolver,
		ComputedAt:    r.ComputedAt,
	}
}

// FromResolvedBatch converts batch results to an HTTP response, preserving
// input order.
func FromResolvedBatch(resolved []*domain.ResolvedEOL) *BatchResolveResponse {
	results := make([]*ResolutionResponse, len(resolved))
	for i, r := range resolved {
		results[i] = FromResolved(r)
	}
	return &BatchResolveResponse{Results: results}
}

// AuditTrailResponse is the HTTP response for GET /v1/admin/audit/recent.
type AuditTrailResponse struct {
	Events []audit.Event `json:"events"`
}
