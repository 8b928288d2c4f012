package entitlement

import (
	"time"

	"github.com/google/uuid"
)

// Money is a monetary amount in minor currency units.
// $5.90 USD is Amount: 590, Currency: "USD".
type Money struct {
	Amount   int64
	Currency string
}

// Book is a published document on a merchant's shelf.
//
// Invariant: Price is non-nil iff IsBehindPaywall is true. Flipping the
// paywall off clears the price.
type Book struct {
	ID              uuid.UUID
	CompanyID       string
	Title           string
	IsBehindPaywall bool
	Price           *Money
	DisplayOrder    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccessGrant records that a user has paid access to a book. At most one
// grant exists per (book, user) pair; that uniqueness is the idempotency
// anchor for webhook replay. Grants are never updated or deleted.
type AccessGrant struct {
	BookID      uuid.UUID
	UserID      string
	PurchasedAt time.Time
	PricePaid   *Money
}
