package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/pg"
)

// BookStore persists books in the books table.
type BookStore struct {
	pool *pgxpool.Pool
}

// NewBookStore creates a book store backed by the given pool.
// Panics if pool is nil to catch wiring mistakes at startup.
func NewBookStore(pool *pgxpool.Pool) *BookStore {
	if pool == nil {
		panic("postgres.NewBookStore: pool is nil")
	}
	return &BookStore{pool: pool}
}

const bookColumns = `id, company_id, title, is_behind_paywall, price_amount, price_currency,
	display_order, created_at, updated_at`

func scanBook(row pgx.Row) (*entitlement.Book, error) {
	var (
		b        entitlement.Book
		amount   *int64
		currency *string
	)
	err := row.Scan(
		&b.ID, &b.CompanyID, &b.Title, &b.IsBehindPaywall, &amount, &currency,
		&b.DisplayOrder, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if amount != nil && currency != nil {
		b.Price = &entitlement.Money{Amount: *amount, Currency: *currency}
	}
	return &b, nil
}

func priceColumns(p *entitlement.Money) (*int64, *string) {
	if p == nil {
		return nil, nil
	}
	return &p.Amount, &p.Currency
}

func (s *BookStore) Get(ctx context.Context, id uuid.UUID) (*entitlement.Book, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id)

	b, err := scanBook(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, entitlement.ErrBookNotFound
		}
		return nil, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return b, nil
}

func (s *BookStore) Create(ctx context.Context, b *entitlement.Book) error {
	amount, currency := priceColumns(b.Price)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO books (id, company_id, title, is_behind_paywall, price_amount, price_currency, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.CompanyID, b.Title, b.IsBehindPaywall, amount, currency, b.DisplayOrder,
	)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	return nil
}

func (s *BookStore) Update(ctx context.Context, b *entitlement.Book) error {
	amount, currency := priceColumns(b.Price)
	tag, err := s.pool.Exec(ctx, `
		UPDATE books SET
			title = $2,
			is_behind_paywall = $3,
			price_amount = $4,
			price_currency = $5,
			display_order = $6,
			updated_at = now()
		WHERE id = $1`,
		b.ID, b.Title, b.IsBehindPaywall, amount, currency, b.DisplayOrder,
	)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrBookNotFound
	}
	return nil
}

func (s *BookStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrBookNotFound
	}
	return nil
}

func (s *BookStore) ListByCompany(ctx context.Context, companyID string) ([]entitlement.Book, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE company_id = $1
		ORDER BY display_order ASC, created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, errors.Join(entitlement.ErrStoreFailure, err)
	}
	defer rows.Close()

	books := make([]entitlement.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, errors.Join(entitlement.ErrStoreFailure, err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return books, nil
}

func (s *BookStore) CountByCompany(ctx context.Context, companyID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM books WHERE company_id = $1`, companyID).Scan(&n)
	if err != nil {
		return 0, errors.Join(entitlement.ErrStoreFailure, err)
	}
	return n, nil
}

func (s *BookStore) SetDisplayOrder(ctx context.Context, companyID string, id uuid.UUID, order int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE books SET display_order = $3, updated_at = now()
		WHERE id = $2 AND company_id = $1`,
		companyID, id, order,
	)
	if err != nil {
		return errors.Join(entitlement.ErrStoreFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrBookNotFound
	}
	return nil
}
