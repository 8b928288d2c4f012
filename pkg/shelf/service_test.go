package shelf_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/shelf"
	"github.com/shelfworks/bookshelf/storage/memory"
)

// stubProvider records checkout requests and serves canned company data.
type stubProvider struct {
	oneTime      []billing.OneTimeCheckoutRequest
	subscription []billing.SubscriptionCheckoutRequest
	company      *billing.Company
	companyErr   error
}

func (p *stubProvider) CreateOneTimeCheckout(_ context.Context, req billing.OneTimeCheckoutRequest) (*billing.CheckoutConfig, error) {
	p.oneTime = append(p.oneTime, req)
	return &billing.CheckoutConfig{
		ID: "cfg_" + req.BookID,
		Metadata: billing.Metadata{
			BookID:    req.BookID,
			UserID:    req.UserID,
			CompanyID: req.CompanyID,
		},
	}, nil
}

func (p *stubProvider) CreateSubscriptionCheckout(_ context.Context, req billing.SubscriptionCheckoutRequest) (*billing.CheckoutConfig, error) {
	p.subscription = append(p.subscription, req)
	return &billing.CheckoutConfig{
		ID:     "cfg_sub",
		PlanID: req.PlanID,
		Metadata: billing.Metadata{
			Type:      billing.MetadataTypeSubscription,
			CompanyID: req.CompanyID,
			UserID:    req.UserID,
		},
	}, nil
}

func (p *stubProvider) RetrieveCompany(_ context.Context, companyID string) (*billing.Company, error) {
	if p.companyErr != nil {
		return nil, p.companyErr
	}
	if p.company != nil {
		return p.company, nil
	}
	return &billing.Company{ID: companyID}, nil
}

type fixture struct {
	merchants *memory.MerchantStore
	books     *memory.BookStore
	grants    *memory.GrantStore
	provider  *stubProvider
	svc       shelf.Service
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		merchants: memory.NewMerchantStore(),
		books:     memory.NewBookStore(),
		grants:    memory.NewGrantStore(),
		provider:  &stubProvider{},
		now:       time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	gate := entitlement.NewService(f.merchants, f.books, f.grants, entitlement.WithClock(clock))
	f.svc = shelf.NewService(
		shelf.Config{SubscriptionPlanID: "plan_monthly"},
		gate, f.merchants, f.books, f.provider,
		shelf.WithClock(clock),
	)
	return f
}

func (f *fixture) activateSubscription(t *testing.T, companyID string) {
	t.Helper()

	m, err := f.merchants.Get(context.Background(), companyID)
	if errors.Is(err, entitlement.ErrMerchantNotFound) {
		m = entitlement.NewMerchant(companyID)
	} else {
		require.NoError(t, err)
	}
	expires := f.now.Add(30 * 24 * time.Hour)
	m.SubscriptionStatus = entitlement.StatusActive
	m.SubscriptionExpiresAt = &expires
	require.NoError(t, f.merchants.Save(context.Background(), m))
}

func TestService_CreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first book rides the free tier and flips the flag", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.provider.company = &billing.Company{ID: "biz_1", Name: "Acme", Email: "owner@acme.test"}

		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID: "biz_1",
			Title:     "Field Notes",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, book.DisplayOrder)
		assert.False(t, book.IsBehindPaywall)
		assert.Nil(t, book.Price)

		m, err := f.merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.True(t, m.FreeBookUsed)
		assert.Equal(t, "Acme", m.Name)
	})

	t.Run("second book requires a subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)

		_, err = f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Two"})
		require.ErrorIs(t, err, shelf.ErrCreateNotAllowed)

		var quota *shelf.QuotaError
		require.ErrorAs(t, err, &quota)
		assert.True(t, quota.RequiresSubscription)
		assert.Equal(t, "You've used your free book. Please subscribe to add more books.", quota.Reason)
	})

	t.Run("subscriber appends books with increasing display order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.activateSubscription(t, "biz_1")

		for i, title := range []string{"One", "Two", "Three"} {
			book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: title})
			require.NoError(t, err)
			assert.Equal(t, i, book.DisplayOrder)
		}
	})

	t.Run("subscriber's first book still spends the free tier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.activateSubscription(t, "biz_1")

		_, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)

		m, err := f.merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.True(t, m.FreeBookUsed)
	})

	t.Run("paywalled book requires a price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID:       "biz_1",
			Title:           "Paid",
			IsBehindPaywall: true,
		})
		require.ErrorIs(t, err, shelf.ErrPriceRequired)

		_, err = f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID:       "biz_1",
			Title:           "Paid",
			IsBehindPaywall: true,
			Price:           &entitlement.Money{Amount: 590, Currency: "USD"},
		})
		require.NoError(t, err)
	})

	t.Run("provider outage does not block provisioning", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.provider.companyErr = errors.New("whop is down")

		_, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)

		m, err := f.merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Empty(t, m.Name)
	})
}

func TestService_UpdateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newTitle := "Renamed"
	paywallOn := true
	paywallOff := false

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID:       "biz_1",
			Title:           "Original",
			IsBehindPaywall: true,
			Price:           &entitlement.Money{Amount: 590, Currency: "USD"},
		})
		require.NoError(t, err)

		updated, err := f.svc.UpdateBook(ctx, shelf.UpdateBookInput{
			CompanyID: "biz_1",
			BookID:    book.ID,
			Title:     &newTitle,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.True(t, updated.IsBehindPaywall)
		require.NotNil(t, updated.Price)
		assert.Equal(t, int64(590), updated.Price.Amount)
	})

	t.Run("flipping paywall off clears the price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID:       "biz_1",
			Title:           "Paid",
			IsBehindPaywall: true,
			Price:           &entitlement.Money{Amount: 590, Currency: "USD"},
		})
		require.NoError(t, err)

		updated, err := f.svc.UpdateBook(ctx, shelf.UpdateBookInput{
			CompanyID:       "biz_1",
			BookID:          book.ID,
			IsBehindPaywall: &paywallOff,
		})
		require.NoError(t, err)
		assert.False(t, updated.IsBehindPaywall)
		assert.Nil(t, updated.Price)
	})

	t.Run("flipping paywall on requires a price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Free"})
		require.NoError(t, err)

		_, err = f.svc.UpdateBook(ctx, shelf.UpdateBookInput{
			CompanyID:       "biz_1",
			BookID:          book.ID,
			IsBehindPaywall: &paywallOn,
		})
		require.ErrorIs(t, err, shelf.ErrPriceRequired)

		updated, err := f.svc.UpdateBook(ctx, shelf.UpdateBookInput{
			CompanyID:       "biz_1",
			BookID:          book.ID,
			IsBehindPaywall: &paywallOn,
			Price:           &entitlement.Money{Amount: 1200, Currency: "USD"},
		})
		require.NoError(t, err)
		assert.True(t, updated.IsBehindPaywall)
	})

	t.Run("another company's book is off limits", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Mine"})
		require.NoError(t, err)

		_, err = f.svc.UpdateBook(ctx, shelf.UpdateBookInput{
			CompanyID: "biz_2",
			BookID:    book.ID,
			Title:     &newTitle,
		})
		require.ErrorIs(t, err, shelf.ErrBookNotOwned)
	})
}

func TestService_DeleteBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("deleting the last book restores the free tier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteBook(ctx, "biz_1", book.ID))

		m, err := f.merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.False(t, m.FreeBookUsed)

		// The full cycle: create, delete, create again without subscribing.
		_, err = f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Two"})
		require.NoError(t, err)
	})

	t.Run("deleting one of several keeps the flag", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.activateSubscription(t, "biz_1")
		first, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)
		_, err = f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Two"})
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteBook(ctx, "biz_1", first.ID))

		m, err := f.merchants.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.True(t, m.FreeBookUsed)
	})

	t.Run("cannot delete another company's book", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "One"})
		require.NoError(t, err)

		require.ErrorIs(t, f.svc.DeleteBook(ctx, "biz_2", book.ID), shelf.ErrBookNotOwned)
	})
}

func TestService_ReorderBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.activateSubscription(t, "biz_1")

	var ids []uuid.UUID
	for _, title := range []string{"One", "Two", "Three"} {
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: title})
		require.NoError(t, err)
		ids = append(ids, book.ID)
	}

	require.NoError(t, f.svc.ReorderBooks(ctx, "biz_1", []shelf.BookOrder{
		{BookID: ids[0], DisplayOrder: 2},
		{BookID: ids[1], DisplayOrder: 0},
		{BookID: ids[2], DisplayOrder: 1},
	}))

	books, err := f.svc.ListBooks(ctx, "biz_1")
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Two", books[0].Title)
	assert.Equal(t, "Three", books[1].Title)
	assert.Equal(t, "One", books[2].Title)

	// A reorder scoped to another company cannot move these books.
	err = f.svc.ReorderBooks(ctx, "biz_2", []shelf.BookOrder{{BookID: ids[0], DisplayOrder: 0}})
	require.ErrorIs(t, err, entitlement.ErrBookNotFound)
}

func TestService_Checkouts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("book checkout carries purchase metadata", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{
			CompanyID:       "biz_1",
			Title:           "Paid",
			IsBehindPaywall: true,
			Price:           &entitlement.Money{Amount: 590, Currency: "USD"},
		})
		require.NoError(t, err)

		cfg, err := f.svc.CreateBookCheckout(ctx, book.ID, "user_1")
		require.NoError(t, err)
		assert.Equal(t, book.ID.String(), cfg.Metadata.BookID)
		assert.Equal(t, "user_1", cfg.Metadata.UserID)

		require.Len(t, f.provider.oneTime, 1)
		assert.Equal(t, int64(590), f.provider.oneTime[0].Amount)
		assert.Equal(t, "USD", f.provider.oneTime[0].Currency)
	})

	t.Run("open book has no checkout", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		book, err := f.svc.CreateBook(ctx, shelf.CreateBookInput{CompanyID: "biz_1", Title: "Free"})
		require.NoError(t, err)

		_, err = f.svc.CreateBookCheckout(ctx, book.ID, "user_1")
		require.ErrorIs(t, err, shelf.ErrBookNotPaywalled)
	})

	t.Run("subscription checkout uses the configured plan", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		cfg, err := f.svc.CreateSubscriptionCheckout(ctx, "biz_1", "user_1")
		require.NoError(t, err)
		assert.Equal(t, "plan_monthly", cfg.PlanID)
		assert.Equal(t, billing.MetadataTypeSubscription, cfg.Metadata.Type)

		require.Len(t, f.provider.subscription, 1)
		assert.Equal(t, "biz_1", f.provider.subscription[0].CompanyID)
	})
}
