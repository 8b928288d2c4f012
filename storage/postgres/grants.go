package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

// GrantStore persists access grants in the access_grants table. The table's
// primary key is (book_id, user_id); InsertIfAbsent leans on it so replayed
// purchase events never produce a second row.
type GrantStore struct {
	pool *pgxpool.Pool
}

// NewGrantStore creates a grant store backed by the given pool.
// Panics if pool is nil to catch wiring mistakes at startup.
func NewGrantStore(pool *pgxpool.Pool) *GrantStore {
	if pool == nil {
		panic("postgres.NewGrantStore: pool is nil")
	}
	return &GrantStore{pool: pool}
}

func (s *GrantStore) Exists(ctx context.Context, bookID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM access_grants WHERE book_id = $1 AND user_id = $2)`,
		bookID, userID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return exists, nil
}

func (s *GrantStore) InsertIfAbsent(ctx context.Context, g *entitlement.AccessGrant) (bool, error) {
	amount, currency := priceColumns(g.PricePaid)
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO access_grants (book_id, user_id, purchased_at, price_paid_amount, price_paid_currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (book_id, user_id) DO NOTHING`,
		g.BookID, g.UserID, g.PurchasedAt, amount, currency,
	)
	if err != nil {
		return false, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return tag.RowsAffected() == 0, nil
}
