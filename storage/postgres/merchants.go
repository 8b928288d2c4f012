package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/pg"
)

// MerchantStore persists merchants in the merchants table, one row per
// provider company.
type MerchantStore struct {
	pool *pgxpool.Pool
}

// NewMerchantStore creates a merchant store backed by the given pool.
// Panics if pool is nil to catch wiring mistakes at startup.
func NewMerchantStore(pool *pgxpool.Pool) *MerchantStore {
	if pool == nil {
		panic("postgres.NewMerchantStore: pool is nil")
	}
	return &MerchantStore{pool: pool}
}

const merchantColumns = `company_id, name, email, subscription_status, subscription_plan_id,
	subscription_id, subscription_started_at, subscription_expires_at, free_book_used,
	created_at, updated_at`

func (s *MerchantStore) Get(ctx context.Context, companyID string) (*entitlement.Merchant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE company_id = $1`, companyID)

	var m entitlement.Merchant
	err := row.Scan(
		&m.CompanyID, &m.Name, &m.Email, &m.SubscriptionStatus, &m.SubscriptionPlanID,
		&m.SubscriptionID, &m.SubscriptionStartedAt, &m.SubscriptionExpiresAt, &m.FreeBookUsed,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, entitlement.ErrMerchantNotFound
		}
		return nil, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return &m, nil
}

func (s *MerchantStore) Save(ctx context.Context, m *entitlement.Merchant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO merchants (`+merchantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (company_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			subscription_status = EXCLUDED.subscription_status,
			subscription_plan_id = EXCLUDED.subscription_plan_id,
			subscription_id = EXCLUDED.subscription_id,
			subscription_started_at = EXCLUDED.subscription_started_at,
			subscription_expires_at = EXCLUDED.subscription_expires_at,
			free_book_used = EXCLUDED.free_book_used,
			updated_at = now()`,
		m.CompanyID, m.Name, m.Email, m.SubscriptionStatus, m.SubscriptionPlanID,
		m.SubscriptionID, m.SubscriptionStartedAt, m.SubscriptionExpiresAt, m.FreeBookUsed,
		m.CreatedAt,
	)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	return nil
}

func (s *MerchantStore) SetFreeBookUsed(ctx context.Context, companyID string, used bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE merchants SET free_book_used = $2, updated_at = now()
		WHERE company_id = $1`,
		companyID, used,
	)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	return nil
}
