package testutil

import (
	"context"
	"sync"

	"github.com/alumnity/alumnity/internal/domain/tenant"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/types"
)

// InMemoryTenantStore implements tenant.Repository for tests. Errors
// carry the same sentinel marks as the postgres implementation so
// service fallback paths behave identically.
type InMemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
	usage   map[string]map[types.UnitKind]int64
	admins  map[string][]string

	failCreates int
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		tenants: make(map[string]*tenant.Tenant),
		usage:   make(map[string]map[types.UnitKind]int64),
		admins:  make(map[string][]string),
	}
}

func (s *InMemoryTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreates > 0 {
		s.failCreates--
		return ierr.NewError("injected create failure").
			Mark(ierr.ErrDatabase)
	}
	for _, existing := range s.tenants {
		if existing.Slug == t.Slug {
			return ierr.NewError("tenant already exists").
				WithHint("An organization with this slug already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.tenants[t.ID] = t
	return nil
}

func (s *InMemoryTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, exists := s.tenants[id]; exists {
		return t, nil
	}
	return nil, ierr.NewError("tenant not found").
		WithHint("Organization not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTenantStore) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, ierr.NewError("tenant not found").
		WithHint("Organization not found").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTenantStore) Update(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenants[t.ID]; !exists {
		return ierr.NewError("tenant not found").
			WithHint("Organization not found").
			Mark(ierr.ErrNotFound)
	}
	s.tenants[t.ID] = t
	return nil
}

func (s *InMemoryTenantStore) CountUsage(ctx context.Context, tenantID string, kind types.UnitKind) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if byKind, ok := s.usage[tenantID]; ok {
		return byKind[kind], nil
	}
	return 0, nil
}

func (s *InMemoryTenantStore) GrantAdminRole(ctx context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins[tenantID] = append(s.admins[tenantID], userID)
	return nil
}

// SetUsage seeds the usage floor for a unit kind
func (s *InMemoryTenantStore) SetUsage(tenantID string, kind types.UnitKind, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usage[tenantID] == nil {
		s.usage[tenantID] = make(map[types.UnitKind]int64)
	}
	s.usage[tenantID][kind] = count
}

// FailNextCreates makes the next n create calls fail
func (s *InMemoryTenantStore) FailNextCreates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failCreates = n
}

// Admins returns the users granted the billing-admin role for a tenant
func (s *InMemoryTenantStore) Admins(tenantID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.admins[tenantID]...)
}

func (s *InMemoryTenantStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants = make(map[string]*tenant.Tenant)
	s.usage = make(map[string]map[types.UnitKind]int64)
	s.admins = make(map[string][]string)
	s.failCreates = 0
}
