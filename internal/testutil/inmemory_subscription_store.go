package testutil

import (
	"context"
	"sync"

	"github.com/alumnity/alumnity/internal/domain/subscription"
	ierr "github.com/alumnity/alumnity/internal/errors"
)

// InMemorySubscriptionStore implements subscription.Repository for
// tests. Partial updates go through UpdateFields.Apply so the store
// agrees with the SQL semantics. FailNextUpdates injects write failures
// for exercising the degraded-success path.
type InMemorySubscriptionStore struct {
	mu       sync.RWMutex
	byTenant map[string]*subscription.Record

	failUpdates int
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		byTenant: make(map[string]*subscription.Record),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, record *subscription.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTenant[record.TenantID]; exists {
		return ierr.NewError("subscription record already exists").
			WithHint("The organization already has a billing record").
			Mark(ierr.ErrAlreadyExists)
	}
	clone := *record
	s.byTenant[record.TenantID] = &clone
	return nil
}

func (s *InMemorySubscriptionStore) GetByTenantID(ctx context.Context, tenantID string) (*subscription.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, exists := s.byTenant[tenantID]; exists {
		clone := *record
		return &clone, nil
	}
	return nil, notFound()
}

func (s *InMemorySubscriptionStore) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*subscription.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.byTenant {
		if record.ProviderSubscriptionID != nil && *record.ProviderSubscriptionID == providerSubscriptionID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, notFound()
}

func (s *InMemorySubscriptionStore) GetByProviderCustomerID(ctx context.Context, providerCustomerID string) (*subscription.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.byTenant {
		if record.ProviderCustomerID != nil && *record.ProviderCustomerID == providerCustomerID {
			clone := *record
			return &clone, nil
		}
	}
	return nil, notFound()
}

func (s *InMemorySubscriptionStore) UpdateByTenantID(ctx context.Context, tenantID string, fields *subscription.UpdateFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdates > 0 {
		s.failUpdates--
		return ierr.NewError("injected update failure").
			Mark(ierr.ErrDatabase)
	}
	record, exists := s.byTenant[tenantID]
	if !exists {
		return notFound()
	}
	fields.Apply(record)
	return nil
}

func (s *InMemorySubscriptionStore) UpdateByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string, fields *subscription.UpdateFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdates > 0 {
		s.failUpdates--
		return ierr.NewError("injected update failure").
			Mark(ierr.ErrDatabase)
	}
	for _, record := range s.byTenant {
		if record.ProviderSubscriptionID != nil && *record.ProviderSubscriptionID == providerSubscriptionID {
			fields.Apply(record)
			return nil
		}
	}
	return notFound()
}

// FailNextUpdates makes the next n update calls fail
func (s *InMemorySubscriptionStore) FailNextUpdates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failUpdates = n
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byTenant = make(map[string]*subscription.Record)
	s.failUpdates = 0
}

func notFound() error {
	return ierr.NewError("subscription record not found").
		WithHint("No billing record found for the organization").
		Mark(ierr.ErrNotFound)
}
