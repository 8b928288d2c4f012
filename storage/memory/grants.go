package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

type grantKey struct {
	bookID uuid.UUID
	userID string
}

// GrantStore keeps access grants in a map keyed by (book, user).
type GrantStore struct {
	mu     sync.RWMutex
	grants map[grantKey]entitlement.AccessGrant
}

// NewGrantStore returns an empty in-memory grant store.
func NewGrantStore() *GrantStore {
	return &GrantStore{grants: make(map[grantKey]entitlement.AccessGrant)}
}

func (s *GrantStore) Exists(_ context.Context, bookID uuid.UUID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.grants[grantKey{bookID: bookID, userID: userID}]
	return ok, nil
}

func (s *GrantStore) InsertIfAbsent(_ context.Context, g *entitlement.AccessGrant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{bookID: g.BookID, userID: g.UserID}
	if _, ok := s.grants[key]; ok {
		return true, nil
	}
	cp := *g
	if cp.PurchasedAt.IsZero() {
		cp.PurchasedAt = time.Now()
	}
	if g.PricePaid != nil {
		price := *g.PricePaid
		cp.PricePaid = &price
	}
	s.grants[key] = cp
	return false, nil
}
