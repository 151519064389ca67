// Package audit records administrative actions so cache mutations are
// attributable after the fact. Events stay transport-agnostic; stores decide
// persistence.
package audit

import (
	"context"
	"time"

	"sunset/pkg/requestcontext"
)

// Action names an administrative operation.
type Action string

const (
	ActionCachePurge    Action = "cache_purge"
	ActionCachePurgeAll Action = "cache_purge_all"
)

// Event is one recorded admin action.
type Event struct {
	Time    time.Time `json:"time"`
	Subject string    `json:"subject"`
	Action  Action    `json:"action"`
	// Target is the product the action applied to, "name@version" form,
	// empty for service-wide actions.
	Target    string `json:"target,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	// Recent returns up to limit events, most recent first.
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder fills in the request-scoped fields before handing events to the
// store. A nil Recorder records nothing, so callers need no guards.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one event, defaulting Time, Subject, and RequestID from
// the request context when unset.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if r == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = requestcontext.Now(ctx)
	}
	if event.Subject == "" {
		event.Subject = requestcontext.AdminSubject(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return r.store.Append(ctx, event)
}

// Recent returns up to limit recorded events, most recent first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if r == nil {
		return nil, nil
	}
	return r.store.Recent(ctx, limit)
}
