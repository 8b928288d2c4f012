package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

// MerchantStore keeps merchant rows in a map keyed by provider company ID.
type MerchantStore struct {
	mu        sync.RWMutex
	merchants map[string]entitlement.Merchant
}

// NewMerchantStore returns an empty in-memory merchant store.
func NewMerchantStore() *MerchantStore {
	return &MerchantStore{merchants: make(map[string]entitlement.Merchant)}
}

func (s *MerchantStore) Get(_ context.Context, companyID string) (*entitlement.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.merchants[companyID]
	if !ok {
		return nil, entitlement.ErrMerchantNotFound
	}
	cp := m
	return &cp, nil
}

func (s *MerchantStore) Save(_ context.Context, m *entitlement.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	cp.UpdatedAt = time.Now()
	if _, ok := s.merchants[cp.CompanyID]; !ok && cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}
	s.merchants[cp.CompanyID] = cp
	return nil
}

func (s *MerchantStore) SetFreeBookUsed(_ context.Context, companyID string, used bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.merchants[companyID]
	if !ok {
		return nil
	}
	m.FreeBookUsed = used
	m.UpdatedAt = time.Now()
	s.merchants[companyID] = m
	return nil
}
