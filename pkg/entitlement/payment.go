package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/billing"
)

// ApplyPaymentSucceeded interprets a payment.succeeded event as a book
// purchase and records the access grant idempotently.
//
// Payments marked as subscription payments are the counterpart of a
// membership.activated event and are skipped here. Events without usable
// bookId/userId metadata are permanent failures: they can never be
// correlated, so retrying the delivery cannot help.
func (s *service) ApplyPaymentSucceeded(ctx context.Context, ev *billing.PaymentEvent) (*GrantResult, error) {
	if ev.IsSubscriptionPayment() {
		s.log.InfoContext(ctx, "skipping subscription payment, owned by membership flow",
			slog.String("payment_id", ev.ID))
		return &GrantResult{Skipped: true}, nil
	}

	if ev.Metadata.BookID == "" || ev.Metadata.UserID == "" {
		return nil, ErrMissingPurchaseMetadata
	}
	bookID, err := uuid.Parse(ev.Metadata.BookID)
	if err != nil {
		return nil, errors.Join(ErrMissingPurchaseMetadata, err)
	}

	var paid *Money
	if total, err := ev.TotalMinorUnits(); err == nil && ev.Currency != "" {
		paid = &Money{Amount: total, Currency: strings.ToUpper(ev.Currency)}
	}

	result, err := s.GrantAccess(ctx, bookID, ev.Metadata.UserID, paid)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "book purchase reconciled",
		slog.String("book_id", bookID.String()),
		slog.String("user_id", ev.Metadata.UserID),
		slog.Bool("already_had_access", result.AlreadyHadAccess))
	return result, nil
}
