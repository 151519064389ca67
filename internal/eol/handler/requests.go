package handler

import (
	"fmt"
	"strings"

	"sunset/internal/eol"
	dErrors "sunset/pkg/domain-errors"
)

// Field size caps, checked before any service work happens.
const (
	maxNameLength    = 200
	maxVersionLength = 64
)

// ResolveRequest is the HTTP request body for POST /v1/eol/resolve.
type ResolveRequest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Version = strings.TrimSpace(r.Version)

	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(r.Version) > maxVersionLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("version must be at most %d characters", maxVersionLength))
	}
	return nil
}

// BatchQuery is one entry of a batch resolution request.
type BatchQuery struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// BatchResolveRequest is the HTTP request body for POST /v1/eol/resolve-batch.
type BatchResolveRequest struct {
	Queries []BatchQuery `json:"queries"`
}

// Validate validates and normalizes every entry. The batch size cap is the
// handler's to enforce; it is configuration, not request shape.
func (r *BatchResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Queries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "queries must not be empty")
	}
	for i := range r.Queries {
		q := &r.Queries[i]
		q.Name = strings.TrimSpace(q.Name)
		q.Version = strings.TrimSpace(q.Version)

		if q.Name == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("queries[%d]: name is required", i))
		}
		if len(q.Name) > maxNameLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("queries[%d]: name must be at most %d characters", i, maxNameLength))
		}
		if len(q.Version) > maxVersionLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("queries[%d]: version must be at most %d characters", i, maxVersionLength))
		}
	}
	return nil
}

// Requests converts the validated body into service batch entries.
func (r *BatchResolveRequest) Requests() []eol.Request {
	reqs := make([]eol.Request, len(r.Queries))
	for i, q := range r.Queries {
		reqs[i] = eol.Request{Name: q.Name, Version: q.Version}
	}
	return reqs
}

// PurgeRequest is the HTTP request body for POST /v1/admin/cache/purge.
type PurgeRequest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Validate validates and normalizes the request.
func (r *PurgeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Version = strings.TrimSpace(r.Version)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	return nil
}
