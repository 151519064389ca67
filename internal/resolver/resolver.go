// Package resolver dispatches EOL lookups to source-specific clients. A
// static descriptor table decides which sources apply to a query; the
// universal fallback source is always consulted last.
package resolver

import (
	"context"

	"sunset/internal/domain"
)

// Resolver is the universal interface all EOL knowledge sources implement.
// Implementations are stateless: pure functions of the query plus whatever
// their backing source answers.
type Resolver interface {
	// ID returns the stable identifier of the backing source.
	ID() string

	// Lookup fetches the source's best candidate for the query. Sources with
	// no answer return sentinel.ErrNotFound (wrapped); unreachable sources
	// return sentinel.ErrUnavailable.
	Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error)

	// Health checks whether the backing source is reachable.
	Health(ctx context.Context) error
}

// Descriptor declares when a source applies and how it ranks against the
// other sources. Static data, loaded at construction, read-only thereafter.
type Descriptor struct {
	ID          string
	DisplayName string
	// Keywords select this source when any of them is a case-insensitive
	// substring of the normalized query name. Empty only for the fallback.
	Keywords []string
	// Priority orders selected sources; lower wins. The fallback always
	// sorts last regardless of priority.
	Priority int
}

// Entry pairs a descriptor with its bound resolver.
type Entry struct {
	Descriptor Descriptor
	Resolver   Resolver
}
