package entitlement

import (
	"context"

	"github.com/google/uuid"
)

// MerchantStore persists merchant records keyed by company ID.
type MerchantStore interface {
	// Get retrieves a merchant by company ID.
	// Returns ErrMerchantNotFound if no record exists.
	Get(ctx context.Context, companyID string) (*Merchant, error)

	// Save inserts or updates a merchant by company ID.
	Save(ctx context.Context, m *Merchant) error

	// SetFreeBookUsed flips the free-tier flag. The write is idempotent; a
	// no-op when the merchant does not exist.
	SetFreeBookUsed(ctx context.Context, companyID string, used bool) error
}

// BookStore persists books.
type BookStore interface {
	// Get retrieves a book by ID. Returns ErrBookNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (*Book, error)

	// Create inserts a new book.
	Create(ctx context.Context, b *Book) error

	// Update overwrites an existing book. Returns ErrBookNotFound if absent.
	Update(ctx context.Context, b *Book) error

	// Delete removes a book. Returns ErrBookNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByCompany returns a company's books ordered by display order
	// ascending, ties broken by creation time descending.
	ListByCompany(ctx context.Context, companyID string) ([]Book, error)

	// CountByCompany returns the number of books a company currently has.
	CountByCompany(ctx context.Context, companyID string) (int64, error)

	// SetDisplayOrder updates one book's position, scoped to the owning
	// company so a reorder request cannot move another merchant's book.
	SetDisplayOrder(ctx context.Context, companyID string, id uuid.UUID, order int) error
}

// GrantStore persists access grants.
type GrantStore interface {
	// Exists reports whether a grant exists for the (book, user) pair.
	Exists(ctx context.Context, bookID uuid.UUID, userID string) (bool, error)

	// InsertIfAbsent writes the grant unless one already exists for the
	// (book, user) pair, reporting whether it did. Concurrent duplicate
	// inserts must resolve to exactly one stored row.
	InsertIfAbsent(ctx context.Context, g *AccessGrant) (existed bool, err error)
}
