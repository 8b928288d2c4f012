package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/billing"
)

// Service is the public interface of the entitlement engine.
//
// The Can*/Check* methods are read-only and safe to call concurrently and
// repeatedly. The Apply* methods interpret provider webhook events and are
// idempotent: re-applying the same event any number of times produces the
// same end state as applying it once.
type Service interface {
	// SubscriptionSnapshot reads the merchant's entitlement-relevant state.
	// Memoized per request scope when the context carries a snapshot cache
	// (see WithSnapshotCache); never cached across requests.
	SubscriptionSnapshot(ctx context.Context, companyID string) (*Snapshot, error)

	// CanCreateBook decides whether the company may create another book.
	// A negative answer is a normal result with a human-readable reason,
	// not an error.
	CanCreateBook(ctx context.Context, companyID string) (*CreateDecision, error)

	// CheckBookAccess decides whether the user may view the book. Books not
	// behind a paywall are always accessible; a missing grant is the normal
	// "must purchase" result, not an error.
	CheckBookAccess(ctx context.Context, bookID uuid.UUID, userID string) (*AccessDecision, error)

	// GrantAccess idempotently records paid access for a (book, user) pair.
	// Callable directly to support post-purchase confirmation from a client
	// poll, and by the purchase reconciler from webhook events.
	GrantAccess(ctx context.Context, bookID uuid.UUID, userID string, paid *Money) (*GrantResult, error)

	// MarkFreeBookUsed flips the free-tier flag on; called alongside a
	// company's first book insert.
	MarkFreeBookUsed(ctx context.Context, companyID string) error

	// ResetFreeBookUsed flips the free-tier flag off; called after a
	// company's last book is deleted.
	ResetFreeBookUsed(ctx context.Context, companyID string) error

	// ApplyMembershipActivated processes a membership.activated event.
	ApplyMembershipActivated(ctx context.Context, ev *billing.MembershipEvent) error

	// ApplyMembershipDeactivated processes a membership.deactivated event.
	ApplyMembershipDeactivated(ctx context.Context, ev *billing.MembershipEvent) error

	// ApplyPaymentSucceeded processes a payment.succeeded event.
	ApplyPaymentSucceeded(ctx context.Context, ev *billing.PaymentEvent) (*GrantResult, error)
}

// Snapshot is the merchant's entitlement state at a single instant.
type Snapshot struct {
	CompanyID             string
	Status                SubscriptionStatus
	ExpiresAt             *time.Time
	BookCount             int64
	FreeBookUsed          bool
	FreeBookAvailable     bool
	HasActiveSubscription bool
}

// CreateDecision is the outcome of a create-eligibility check. Reason and
// RequiresSubscription drive UI messaging only; they are advisory, not a
// security boundary.
type CreateDecision struct {
	CanCreate            bool
	Reason               string
	RequiresSubscription bool
}

// AccessDecision is the outcome of a view-access check.
type AccessDecision struct {
	HasAccess bool
}

// GrantResult reports how a grant attempt resolved. AlreadyHadAccess lets a
// client polling after checkout distinguish "first grant" from "replayed
// webhook, no-op". Skipped means the event belonged to the subscription flow
// and was intentionally not granted here.
type GrantResult struct {
	AlreadyHadAccess bool
	Skipped          bool
}

type service struct {
	merchants MerchantStore
	books     BookStore
	grants    GrantStore
	log       *slog.Logger
	now       func() time.Time
}

// Option configures the entitlement service.
type Option func(*service)

// WithLogger sets the logger for dropped events and skipped paths.
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests exercising expiry edges.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the entitlement engine. Panics on nil stores to fail
// fast during initialization.
func NewService(merchants MerchantStore, books BookStore, grants GrantStore, opts ...Option) Service {
	if merchants == nil {
		panic("entitlement: MerchantStore is required")
	}
	if books == nil {
		panic("entitlement: BookStore is required")
	}
	if grants == nil {
		panic("entitlement: GrantStore is required")
	}

	s := &service{
		merchants: merchants,
		books:     books,
		grants:    grants,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SubscriptionSnapshot(ctx context.Context, companyID string) (*Snapshot, error) {
	if snap, ok := snapshotFromCache(ctx, companyID); ok {
		return snap, nil
	}

	merchant, err := s.merchants.Get(ctx, companyID)
	if err != nil && !errors.Is(err, ErrMerchantNotFound) {
		return nil, err
	}

	count, err := s.books.CountByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		CompanyID: companyID,
		Status:    StatusFree,
		BookCount: count,
	}
	if merchant != nil {
		snap.Status = merchant.SubscriptionStatus
		snap.ExpiresAt = merchant.SubscriptionExpiresAt
		snap.FreeBookUsed = merchant.FreeBookUsed
		snap.HasActiveSubscription = merchant.HasActiveSubscriptionAt(s.now())
	}
	snap.FreeBookAvailable = !snap.FreeBookUsed && count == 0

	cacheSnapshot(ctx, snap)
	return snap, nil
}

func (s *service) CanCreateBook(ctx context.Context, companyID string) (*CreateDecision, error) {
	snap, err := s.SubscriptionSnapshot(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if snap.FreeBookAvailable || snap.HasActiveSubscription {
		return &CreateDecision{CanCreate: true}, nil
	}

	decision := &CreateDecision{
		Reason:               "You need an active subscription to add more books.",
		RequiresSubscription: true,
	}
	switch {
	case snap.BookCount == 0 && !snap.FreeBookAvailable:
		decision.Reason = "Your free book has already been used. Please subscribe to add more books."
	case snap.BookCount > 0 && !snap.HasActiveSubscription:
		decision.Reason = "You've used your free book. Please subscribe to add more books."
	}
	return decision, nil
}

func (s *service) CheckBookAccess(ctx context.Context, bookID uuid.UUID, userID string) (*AccessDecision, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if !book.IsBehindPaywall {
		return &AccessDecision{HasAccess: true}, nil
	}

	has, err := s.grants.Exists(ctx, bookID, userID)
	if err != nil {
		return nil, err
	}
	return &AccessDecision{HasAccess: has}, nil
}

func (s *service) GrantAccess(ctx context.Context, bookID uuid.UUID, userID string, paid *Money) (*GrantResult, error) {
	if bookID == uuid.Nil || userID == "" {
		return nil, ErrInvalidGrant
	}

	existed, err := s.grants.InsertIfAbsent(ctx, &AccessGrant{
		BookID:      bookID,
		UserID:      userID,
		PurchasedAt: s.now(),
		PricePaid:   paid,
	})
	if err != nil {
		return nil, err
	}
	return &GrantResult{AlreadyHadAccess: existed}, nil
}

func (s *service) MarkFreeBookUsed(ctx context.Context, companyID string) error {
	return s.merchants.SetFreeBookUsed(ctx, companyID, true)
}

func (s *service) ResetFreeBookUsed(ctx context.Context, companyID string) error {
	return s.merchants.SetFreeBookUsed(ctx, companyID, false)
}
