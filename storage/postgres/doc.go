// Package postgres implements the entitlement ledger stores on PostgreSQL
// via pgx. Grant inserts rely on ON CONFLICT DO NOTHING against the
// (book_id, user_id) primary key, so duplicate purchase events resolve to a
// single stored row without advisory locks.
package postgres
