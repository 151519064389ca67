package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds the static source table and answers "which sources should
// this query consult". Selection is additive and non-exclusive: a name can
// match several vendor sources at once, and the fallback source is always
// appended last so every query has at least one candidate source.
type Registry struct {
	vendors  []Entry
	fallback Entry
}

// NewRegistry builds a registry from the fallback entry and the vendor
// entries. Vendor order is fixed at construction: priority ascending, table
// order for equal priorities. This order is the aggregation tie-break, so it
// must be stable across processes.
func NewRegistry(fallback Entry, vendors ...Entry) (*Registry, error) {
	if fallback.Resolver == nil {
		return nil, fmt.Errorf("fallback resolver is required")
	}
	seen := map[string]struct{}{fallback.Descriptor.ID: {}}
	for _, v := range vendors {
		if v.Resolver == nil {
			return nil, fmt.Errorf("vendor entry %q has no resolver", v.Descriptor.ID)
		}
		if len(v.Descriptor.Keywords) == 0 {
			return nil, fmt.Errorf("vendor entry %q has no keywords", v.Descriptor.ID)
		}
		if _, dup := seen[v.Descriptor.ID]; dup {
			return nil, fmt.Errorf("duplicate resolver id %q", v.Descriptor.ID)
		}
		seen[v.Descriptor.ID] = struct{}{}
	}

	sorted := make([]Entry, len(vendors))
	copy(sorted, vendors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor.Priority < sorted[j].Descriptor.Priority
	})

	return &Registry{vendors: sorted, fallback: fallback}, nil
}

// Select returns the sources to consult for a normalized name: every vendor
// entry with a keyword substring match, in priority order, plus the fallback
// last. Never empty.
func (r *Registry) Select(normalizedName string) []Entry {
	lowered := strings.ToLower(normalizedName)

	selected := make([]Entry, 0, len(r.vendors)+1)
	for _, entry := range r.vendors {
		for _, keyword := range entry.Descriptor.Keywords {
			if strings.Contains(lowered, keyword) {
				selected = append(selected, entry)
				break
			}
		}
	}
	return append(selected, r.fallback)
}

// All returns every registered entry, vendors first, fallback last.
func (r *Registry) All() []Entry {
	all := make([]Entry, 0, len(r.vendors)+1)
	all = append(all, r.vendors...)
	return append(all, r.fallback)
}

// Fallback returns the universal fallback entry.
func (r *Registry) Fallback() Entry {
	return r.fallback
}
