package entitlement

import "time"

// SubscriptionStatus represents the merchant's subscription lifecycle state.
type SubscriptionStatus string

const (
	StatusFree      SubscriptionStatus = "free"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// Merchant is the per-company ledger record. One row per company, created
// lazily on the first book-related action and never deleted.
//
// FreeBookUsed tracks the free tier: it flips on when a company creates a
// book without subscription quota and flips off again once its last book is
// deleted. The free tier is one book at a time, not a lifetime cap.
type Merchant struct {
	CompanyID             string
	Name                  string
	Email                 string
	SubscriptionStatus    SubscriptionStatus
	SubscriptionPlanID    string
	SubscriptionID        string
	SubscriptionStartedAt *time.Time
	SubscriptionExpiresAt *time.Time
	FreeBookUsed          bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewMerchant returns a merchant record in its initial free state.
func NewMerchant(companyID string) *Merchant {
	now := time.Now().UTC()
	return &Merchant{
		CompanyID:          companyID,
		SubscriptionStatus: StatusFree,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// HasActiveSubscriptionAt reports whether the subscription entitles the
// merchant at the given instant. A cancelled subscription stays entitled
// until its retained expiry passes (the paid period was already bought);
// an expired one loses entitlement immediately regardless of expiry.
func (m *Merchant) HasActiveSubscriptionAt(now time.Time) bool {
	if m.SubscriptionStatus != StatusActive && m.SubscriptionStatus != StatusCancelled {
		return false
	}
	return m.SubscriptionExpiresAt != nil && m.SubscriptionExpiresAt.After(now)
}
