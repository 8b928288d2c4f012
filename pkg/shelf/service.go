package shelf

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

// Config holds shelf-level settings.
type Config struct {
	// SubscriptionPlanID is the provider plan backing the recurring
	// merchant subscription.
	SubscriptionPlanID string `env:"SHELF_SUBSCRIPTION_PLAN_ID,required"`
}

// Service is the merchant-facing book management surface.
type Service interface {
	ListBooks(ctx context.Context, companyID string) ([]entitlement.Book, error)
	CreateBook(ctx context.Context, in CreateBookInput) (*entitlement.Book, error)
	UpdateBook(ctx context.Context, in UpdateBookInput) (*entitlement.Book, error)
	DeleteBook(ctx context.Context, companyID string, bookID uuid.UUID) error
	ReorderBooks(ctx context.Context, companyID string, orders []BookOrder) error

	// CreateBookCheckout creates a one-time checkout for a paywalled book,
	// attaching the metadata the purchase reconciler later reads back.
	CreateBookCheckout(ctx context.Context, bookID uuid.UUID, userID string) (*billing.CheckoutConfig, error)

	// CreateSubscriptionCheckout creates a recurring-subscription checkout
	// for the company.
	CreateSubscriptionCheckout(ctx context.Context, companyID, userID string) (*billing.CheckoutConfig, error)
}

// CreateBookInput describes a new book. Price is required iff the book is
// behind a paywall.
type CreateBookInput struct {
	CompanyID       string
	Title           string
	IsBehindPaywall bool
	Price           *entitlement.Money
}

// UpdateBookInput carries a partial update; nil fields stay untouched.
type UpdateBookInput struct {
	CompanyID       string
	BookID          uuid.UUID
	Title           *string
	IsBehindPaywall *bool
	Price           *entitlement.Money
}

// BookOrder assigns a display position to one book.
type BookOrder struct {
	BookID       uuid.UUID
	DisplayOrder int
}

type service struct {
	cfg       Config
	gate      entitlement.Service
	merchants entitlement.MerchantStore
	books     entitlement.BookStore
	provider  billing.Provider
	log       *slog.Logger
	now       func() time.Time
}

// Option configures the shelf service.
type Option func(*service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the shelf service. Panics on nil dependencies to fail
// fast during initialization.
func NewService(cfg Config, gate entitlement.Service, merchants entitlement.MerchantStore, books entitlement.BookStore, provider billing.Provider, opts ...Option) Service {
	if gate == nil {
		panic("shelf: entitlement service is required")
	}
	if merchants == nil {
		panic("shelf: merchant store is required")
	}
	if books == nil {
		panic("shelf: book store is required")
	}
	if provider == nil {
		panic("shelf: billing provider is required")
	}

	s := &service{
		cfg:       cfg,
		gate:      gate,
		merchants: merchants,
		books:     books,
		provider:  provider,
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ListBooks(ctx context.Context, companyID string) ([]entitlement.Book, error) {
	return s.books.ListByCompany(ctx, companyID)
}

// CreateBook inserts a new book after the entitlement gate admits it.
//
// The count read, free-tier flip and insert run sequentially without a lock.
// Two concurrent first creations for the same company can both observe a
// zero count and both get admitted; the flag write is idempotent and the
// extra admitted book is an accepted business cost, not a correctness
// violation.
func (s *service) CreateBook(ctx context.Context, in CreateBookInput) (*entitlement.Book, error) {
	decision, err := s.gate.CanCreateBook(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if !decision.CanCreate {
		return nil, &QuotaError{
			Reason:               decision.Reason,
			RequiresSubscription: decision.RequiresSubscription,
		}
	}

	price, err := normalizePrice(in.IsBehindPaywall, in.Price)
	if err != nil {
		return nil, err
	}

	if err := s.ensureMerchant(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	count, err := s.books.CountByCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}

	// The company's first book consumes the free-tier allowance, whether or
	// not a subscription also covers it.
	if count == 0 {
		if err := s.gate.MarkFreeBookUsed(ctx, in.CompanyID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	book := &entitlement.Book{
		ID:              uuid.New(),
		CompanyID:       in.CompanyID,
		Title:           in.Title,
		IsBehindPaywall: in.IsBehindPaywall,
		Price:           price,
		DisplayOrder:    int(count),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "book created",
		slog.String("company_id", in.CompanyID),
		slog.String("book_id", book.ID.String()),
		slog.Bool("paywalled", book.IsBehindPaywall))
	return book, nil
}

func (s *service) UpdateBook(ctx context.Context, in UpdateBookInput) (*entitlement.Book, error) {
	book, err := s.ownedBook(ctx, in.CompanyID, in.BookID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		book.Title = *in.Title
	}

	switch {
	case in.IsBehindPaywall != nil && *in.IsBehindPaywall:
		book.IsBehindPaywall = true
		if in.Price != nil {
			book.Price = in.Price
		}
		if _, err := normalizePrice(true, book.Price); err != nil {
			return nil, err
		}
	case in.IsBehindPaywall != nil:
		// Flipping the paywall off clears the price.
		book.IsBehindPaywall = false
		book.Price = nil
	case in.Price != nil && book.IsBehindPaywall:
		book.Price = in.Price
	}

	book.UpdatedAt = s.now()
	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes a company's book. Deleting the last remaining book
// restores the free-tier allowance.
func (s *service) DeleteBook(ctx context.Context, companyID string, bookID uuid.UUID) error {
	if _, err := s.ownedBook(ctx, companyID, bookID); err != nil {
		return err
	}

	if err := s.books.Delete(ctx, bookID); err != nil {
		return err
	}

	count, err := s.books.CountByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := s.gate.ResetFreeBookUsed(ctx, companyID); err != nil {
			return err
		}
		s.log.InfoContext(ctx, "last book deleted, free tier restored",
			slog.String("company_id", companyID))
	}
	return nil
}

func (s *service) ReorderBooks(ctx context.Context, companyID string, orders []BookOrder) error {
	for _, o := range orders {
		if err := s.books.SetDisplayOrder(ctx, companyID, o.BookID, o.DisplayOrder); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) CreateBookCheckout(ctx context.Context, bookID uuid.UUID, userID string) (*billing.CheckoutConfig, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.IsBehindPaywall || book.Price == nil {
		return nil, ErrBookNotPaywalled
	}

	return s.provider.CreateOneTimeCheckout(ctx, billing.OneTimeCheckoutRequest{
		CompanyID: book.CompanyID,
		BookID:    book.ID.String(),
		UserID:    userID,
		Amount:    book.Price.Amount,
		Currency:  book.Price.Currency,
	})
}

func (s *service) CreateSubscriptionCheckout(ctx context.Context, companyID, userID string) (*billing.CheckoutConfig, error) {
	return s.provider.CreateSubscriptionCheckout(ctx, billing.SubscriptionCheckoutRequest{
		CompanyID: companyID,
		UserID:    userID,
		PlanID:    s.cfg.SubscriptionPlanID,
	})
}

// ensureMerchant provisions the merchant ledger row on first contact,
// pulling the company record from the billing provider.
func (s *service) ensureMerchant(ctx context.Context, companyID string) error {
	_, err := s.merchants.Get(ctx, companyID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entitlement.ErrMerchantNotFound) {
		return err
	}

	merchant := entitlement.NewMerchant(companyID)
	if company, err := s.provider.RetrieveCompany(ctx, companyID); err == nil {
		merchant.Name = company.Name
		merchant.Email = company.Email
	} else {
		// The company lookup only enriches the row; a provider outage
		// should not block the merchant's first book.
		s.log.WarnContext(ctx, "company lookup failed, provisioning bare merchant",
			slog.String("company_id", companyID),
			slog.String("error", err.Error()))
	}
	return s.merchants.Save(ctx, merchant)
}

func (s *service) ownedBook(ctx context.Context, companyID string, bookID uuid.UUID) (*entitlement.Book, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.CompanyID != companyID {
		return nil, ErrBookNotOwned
	}
	return book, nil
}

func normalizePrice(paywalled bool, price *entitlement.Money) (*entitlement.Money, error) {
	if !paywalled {
		return nil, nil
	}
	if price == nil || price.Amount <= 0 || price.Currency == "" {
		return nil, ErrPriceRequired
	}
	return price, nil
}
