package domain

import "time"

// Status classifies where a product sits in its support lifecycle at the
// time a resolution was computed.
type Status string

const (
	StatusSupported    Status = "supported"
	StatusEndOfSupport Status = "end_of_support"
	StatusEndOfLife    Status = "end_of_life"
	StatusUnknown      Status = "unknown"
)

// Query is a single normalized lookup request. Immutable once created;
// produced per request by the normalizer.
type Query struct {
	// Raw is the input string exactly as received.
	Raw string
	// Normalized is the cleaned name with noise annotations removed. It
	// retains the version token ("Windows Server 2016", not "Windows Server").
	Normalized string
	// BaseName is Normalized with the extracted version token removed. Used
	// by resolvers as the product lookup term.
	BaseName string
	// Version is the extracted or explicitly supplied version, empty when
	// neither is present.
	Version string
}

// Candidate is the raw answer from one resolver invocation. Never mutated
// after creation.
type Candidate struct {
	ResolverID    string
	Cycle         string
	EOLDate       *time.Time
	SupportDate   *time.Time
	LatestVersion string
	LTS           *bool
	// Hint is the resolver's own confidence in its match, 0..1. Used only as
	// an aggregation tie-break; the stored confidence comes from the scorer.
	Hint float64
}

// Usable reports whether the candidate carries any lifecycle signal worth
// aggregating. A candidate with no dates and no latest version is treated
// the same as a failed lookup.
func (c *Candidate) Usable() bool {
	if c == nil {
		return false
	}
	return c.EOLDate != nil || c.SupportDate != nil || c.LatestVersion != ""
}

// ResolvedEOL is the authoritative answer for one query key. Created by the
// aggregation pass and owned by the cache manager afterwards.
type ResolvedEOL struct {
	QueryKey             string     `json:"query_key"`
	ProductName          string     `json:"product_name"`
	Version              string     `json:"version,omitempty"`
	Status               Status     `json:"status"`
	EOLDate              *time.Time `json:"eol_date,omitempty"`
	SupportDate          *time.Time `json:"support_date,omitempty"`
	LatestVersion        string     `json:"latest_version,omitempty"`
	Confidence           float64    `json:"confidence"`
	ContributingResolver string     `json:"contributing_resolver,omitempty"`
	ComputedAt           time.Time  `json:"computed_at"`
}

// CacheRecord is the persisted durable-tier shape: the full resolved answer
// plus its expiry. The lookup key equals the cache key.
type CacheRecord struct {
	Key       string      `json:"key"`
	Value     ResolvedEOL `json:"value"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at the given instant.
func (r *CacheRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// DeriveStatus maps known lifecycle dates to a status. An EOL date at or
// before now wins over everything; a passed support date marks the end of
// mainstream support; any known future date means the product is still
// supported; no dates at all is Unknown.
func DeriveStatus(eolDate, supportDate *time.Time, now time.Time) Status {
	switch {
	case eolDate != nil && !eolDate.After(now):
		return StatusEndOfLife
	case supportDate != nil && !supportDate.After(now):
		return StatusEndOfSupport
	case eolDate != nil || supportDate != nil:
		return StatusSupported
	default:
		return StatusUnknown
	}
}
