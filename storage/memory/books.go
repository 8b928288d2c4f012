package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

// BookStore keeps books in a map keyed by book ID.
type BookStore struct {
	mu    sync.RWMutex
	books map[uuid.UUID]entitlement.Book
}

// NewBookStore returns an empty in-memory book store.
func NewBookStore() *BookStore {
	return &BookStore{books: make(map[uuid.UUID]entitlement.Book)}
}

func (s *BookStore) Get(_ context.Context, id uuid.UUID) (*entitlement.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, entitlement.ErrBookNotFound
	}
	cp := b
	if b.Price != nil {
		price := *b.Price
		cp.Price = &price
	}
	return &cp, nil
}

func (s *BookStore) Create(_ context.Context, b *entitlement.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if b.Price != nil {
		price := *b.Price
		cp.Price = &price
	}
	s.books[cp.ID] = cp
	return nil
}

func (s *BookStore) Update(_ context.Context, b *entitlement.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[b.ID]; !ok {
		return entitlement.ErrBookNotFound
	}
	cp := *b
	cp.UpdatedAt = time.Now()
	if b.Price != nil {
		price := *b.Price
		cp.Price = &price
	}
	s.books[cp.ID] = cp
	return nil
}

func (s *BookStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return entitlement.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *BookStore) ListByCompany(_ context.Context, companyID string) ([]entitlement.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entitlement.Book, 0)
	for _, b := range s.books {
		if b.CompanyID != companyID {
			continue
		}
		cp := b
		if b.Price != nil {
			price := *b.Price
			cp.Price = &price
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *BookStore) CountByCompany(_ context.Context, companyID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, b := range s.books {
		if b.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func (s *BookStore) SetDisplayOrder(_ context.Context, companyID string, id uuid.UUID, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok || b.CompanyID != companyID {
		return entitlement.ErrBookNotFound
	}
	b.DisplayOrder = order
	b.UpdatedAt = time.Now()
	s.books[id] = b
	return nil
}
