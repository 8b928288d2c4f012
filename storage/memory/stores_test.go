package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/storage/memory"
)

func TestMerchantStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get missing merchant", func(t *testing.T) {
		t.Parallel()
		s := memory.NewMerchantStore()

		_, err := s.Get(ctx, "biz_ghost")
		require.ErrorIs(t, err, entitlement.ErrMerchantNotFound)
	})

	t.Run("save and get round trip", func(t *testing.T) {
		t.Parallel()
		s := memory.NewMerchantStore()

		m := entitlement.NewMerchant("biz_1")
		m.Name = "Acme"
		require.NoError(t, s.Save(ctx, m))

		got, err := s.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)
		assert.Equal(t, entitlement.StatusFree, got.SubscriptionStatus)

		// The returned copy does not alias store state.
		got.Name = "Changed"
		again, err := s.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, "Acme", again.Name)
	})

	t.Run("free flag write on missing merchant is a no-op", func(t *testing.T) {
		t.Parallel()
		s := memory.NewMerchantStore()
		require.NoError(t, s.SetFreeBookUsed(ctx, "biz_ghost", true))
	})

	t.Run("free flag flips", func(t *testing.T) {
		t.Parallel()
		s := memory.NewMerchantStore()
		require.NoError(t, s.Save(ctx, entitlement.NewMerchant("biz_1")))

		require.NoError(t, s.SetFreeBookUsed(ctx, "biz_1", true))
		m, err := s.Get(ctx, "biz_1")
		require.NoError(t, err)
		assert.True(t, m.FreeBookUsed)
	})
}

func TestBookStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newBook := func(companyID string, order int, createdAt time.Time) *entitlement.Book {
		return &entitlement.Book{
			ID:           uuid.New(),
			CompanyID:    companyID,
			Title:        "Book",
			DisplayOrder: order,
			CreatedAt:    createdAt,
		}
	}

	t.Run("list orders by display order then recency", func(t *testing.T) {
		t.Parallel()
		s := memory.NewBookStore()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		older := newBook("biz_1", 1, base)
		newer := newBook("biz_1", 1, base.Add(time.Hour))
		first := newBook("biz_1", 0, base)
		other := newBook("biz_2", 0, base)
		for _, b := range []*entitlement.Book{older, newer, first, other} {
			require.NoError(t, s.Create(ctx, b))
		}

		books, err := s.ListByCompany(ctx, "biz_1")
		require.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, first.ID, books[0].ID)
		assert.Equal(t, newer.ID, books[1].ID)
		assert.Equal(t, older.ID, books[2].ID)

		count, err := s.CountByCompany(ctx, "biz_1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("update and delete missing book", func(t *testing.T) {
		t.Parallel()
		s := memory.NewBookStore()

		err := s.Update(ctx, newBook("biz_1", 0, time.Now()))
		require.ErrorIs(t, err, entitlement.ErrBookNotFound)
		require.ErrorIs(t, s.Delete(ctx, uuid.New()), entitlement.ErrBookNotFound)
	})

	t.Run("display order is company scoped", func(t *testing.T) {
		t.Parallel()
		s := memory.NewBookStore()
		b := newBook("biz_1", 0, time.Now())
		require.NoError(t, s.Create(ctx, b))

		err := s.SetDisplayOrder(ctx, "biz_2", b.ID, 5)
		require.ErrorIs(t, err, entitlement.ErrBookNotFound)

		require.NoError(t, s.SetDisplayOrder(ctx, "biz_1", b.ID, 5))
		got, err := s.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.DisplayOrder)
	})
}

func TestGrantStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("insert if absent", func(t *testing.T) {
		t.Parallel()
		s := memory.NewGrantStore()
		bookID := uuid.New()

		existed, err := s.InsertIfAbsent(ctx, &entitlement.AccessGrant{BookID: bookID, UserID: "user_1"})
		require.NoError(t, err)
		assert.False(t, existed)

		existed, err = s.InsertIfAbsent(ctx, &entitlement.AccessGrant{BookID: bookID, UserID: "user_1"})
		require.NoError(t, err)
		assert.True(t, existed)

		has, err := s.Exists(ctx, bookID, "user_1")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = s.Exists(ctx, bookID, "user_2")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("concurrent duplicate inserts resolve to one row", func(t *testing.T) {
		t.Parallel()
		s := memory.NewGrantStore()
		bookID := uuid.New()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				existed, err := s.InsertIfAbsent(ctx, &entitlement.AccessGrant{BookID: bookID, UserID: "user_1"})
				require.NoError(t, err)
				if !existed {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
	})
}
