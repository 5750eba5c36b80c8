package testutil

import (
	"context"
	"sync"

	"github.com/alumnity/alumnity/internal/domain/paymentattempt"
	ierr "github.com/alumnity/alumnity/internal/errors"
)

// InMemoryPaymentAttemptStore implements paymentattempt.Repository for tests
type InMemoryPaymentAttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*paymentattempt.PaymentAttempt
}

func NewInMemoryPaymentAttemptStore() *InMemoryPaymentAttemptStore {
	return &InMemoryPaymentAttemptStore{
		attempts: make(map[string]*paymentattempt.PaymentAttempt),
	}
}

func (s *InMemoryPaymentAttemptStore) Create(ctx context.Context, attempt *paymentattempt.PaymentAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *attempt
	s.attempts[attempt.ID] = &clone
	return nil
}

func (s *InMemoryPaymentAttemptStore) GetByID(ctx context.Context, id string) (*paymentattempt.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if attempt, exists := s.attempts[id]; exists {
		clone := *attempt
		return &clone, nil
	}
	return nil, ierr.NewError("payment attempt not found").
		WithHint("No record of this checkout").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPaymentAttemptStore) SetProviderSessionID(ctx context.Context, id, providerSessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, exists := s.attempts[id]
	if !exists {
		return ierr.NewError("payment attempt not found").
			Mark(ierr.ErrNotFound)
	}
	attempt.ProviderSessionID = providerSessionID
	return nil
}

func (s *InMemoryPaymentAttemptStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = make(map[string]*paymentattempt.PaymentAttempt)
}
