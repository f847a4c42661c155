// ABOUTME: Best-effort audit event recorder
// ABOUTME: A failed append is logged and swallowed, never failing the auth decision

package auth

import (
	"context"
	"log/slog"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// Recorder appends audit events. It is fire-and-forget from the caller's
// perspective: persistence failures must not change the outcome of the
// enclosing authentication flow.
type Recorder struct {
	events store.EventStore
	logger *slog.Logger
}

// NewRecorder creates an event recorder.
func NewRecorder(events store.EventStore) *Recorder {
	return &Recorder{
		events: events,
		logger: slog.Default().With("component", "events"),
	}
}

// Record appends an event for the given user. Errors are logged, not returned.
func (r *Recorder) Record(ctx context.Context, name, userID, detail string) {
	event := &store.Event{
		Name:   name,
		UserID: userID,
		Detail: detail,
	}
	if err := r.events.CreateEvent(ctx, event); err != nil {
		r.logger.Warn("failed to record event", "name", name, "user_id", userID, "error", err)
	}
}
