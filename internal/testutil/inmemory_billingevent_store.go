package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/alumnity/alumnity/internal/domain/billingevent"
	ierr "github.com/alumnity/alumnity/internal/errors"
)

// InMemoryBillingEventStore implements billingevent.Repository with the
// same registration semantics as the postgres table: only rows stamped
// processed absorb a redelivery.
type InMemoryBillingEventStore struct {
	mu      sync.Mutex
	records map[string]*billingevent.IdempotencyRecord
}

func NewInMemoryBillingEventStore() *InMemoryBillingEventStore {
	return &InMemoryBillingEventStore{
		records: make(map[string]*billingevent.IdempotencyRecord),
	}
}

func (s *InMemoryBillingEventStore) Register(ctx context.Context, record *billingevent.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.records[record.EventID]; exists {
		return existing.ProcessedAt != nil, nil
	}
	clone := *record
	s.records[record.EventID] = &clone
	return false, nil
}

func (s *InMemoryBillingEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[eventID]
	if !exists {
		return ierr.NewError("billing event not found").
			Mark(ierr.ErrNotFound)
	}
	now := time.Now().UTC()
	record.ProcessedAt = &now
	return nil
}

func (s *InMemoryBillingEventStore) Get(ctx context.Context, eventID string) (*billingevent.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, exists := s.records[eventID]; exists {
		clone := *record
		return &clone, nil
	}
	return nil, ierr.NewError("billing event not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryBillingEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*billingevent.IdempotencyRecord)
}
