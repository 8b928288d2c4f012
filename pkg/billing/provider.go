package billing

import "context"

// Provider is the outbound surface of the payment platform consumed by the
// bookshelf. The engine never talks to the checkout UI itself; it only
// creates checkout configurations and reads company records.
type Provider interface {
	// CreateOneTimeCheckout creates a checkout configuration for a single
	// book purchase. The attached metadata (bookId, userId, companyId) comes
	// back on the resulting payment.succeeded event.
	CreateOneTimeCheckout(ctx context.Context, req OneTimeCheckoutRequest) (*CheckoutConfig, error)

	// CreateSubscriptionCheckout creates a checkout configuration for the
	// recurring merchant subscription. The metadata marks the checkout with
	// type "subscription" so the purchase reconciler skips its payment event.
	CreateSubscriptionCheckout(ctx context.Context, req SubscriptionCheckoutRequest) (*CheckoutConfig, error)

	// RetrieveCompany fetches the provider's company record. Used only to
	// populate a merchant row lazily on first book creation.
	RetrieveCompany(ctx context.Context, companyID string) (*Company, error)
}

// OneTimeCheckoutRequest describes a one-time book purchase checkout.
// Amount is in minor currency units.
type OneTimeCheckoutRequest struct {
	CompanyID string
	BookID    string
	UserID    string
	Amount    int64
	Currency  string
}

// SubscriptionCheckoutRequest describes a recurring subscription checkout
// against a pre-configured provider plan.
type SubscriptionCheckoutRequest struct {
	CompanyID string
	UserID    string
	PlanID    string
}

// CheckoutConfig is the provider's checkout configuration reference. The
// caller redirects the buyer to the provider's hosted checkout using it.
type CheckoutConfig struct {
	ID       string   `json:"id"`
	PlanID   string   `json:"plan_id,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Company is the provider's company record.
type Company struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
