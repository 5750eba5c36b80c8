package testutil

import (
	"context"
	"sync"

	"github.com/alumnity/alumnity/internal/domain/audit"
)

// AuditRecorder implements audit.Sink and keeps every recorded event
// for assertions.
type AuditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{}
}

func (r *AuditRecorder) Record(ctx context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *AuditRecorder) Events() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]audit.Event(nil), r.events...)
}

// EventsByAction filters recorded events by action
func (r *AuditRecorder) EventsByAction(action audit.Action) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []audit.Event
	for _, event := range r.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

func (r *AuditRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
