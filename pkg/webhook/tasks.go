package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/queue"
)

// Task payloads carry the raw event data; decoding happens in the handler so
// a malformed body is classified there as a permanent failure instead of
// poisoning the queue with retries.
type (
	PaymentSucceededTask struct {
		EventID string          `json:"event_id,omitempty"`
		Data    json.RawMessage `json:"data"`
	}

	MembershipActivatedTask struct {
		EventID string          `json:"event_id,omitempty"`
		Data    json.RawMessage `json:"data"`
	}

	MembershipDeactivatedTask struct {
		EventID string          `json:"event_id,omitempty"`
		Data    json.RawMessage `json:"data"`
	}
)

// NewPaymentSucceededHandler returns the queue handler for book purchases.
// The deduper may be nil; when set, the event id is marked processed only on
// completion, so redelivered copies of a still-unprocessed event remain
// eligible for another attempt.
func NewPaymentSucceededHandler(svc entitlement.Service, dedup Deduper, log *slog.Logger) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, t PaymentSucceededTask) error {
		ev, err := billing.ParsePaymentEvent(t.Data)
		if err != nil {
			return dropPermanent(ctx, dedup, log, "payment.succeeded", t.EventID, err)
		}

		if _, err := svc.ApplyPaymentSucceeded(ctx, ev); err != nil {
			if errors.Is(err, entitlement.ErrMissingPurchaseMetadata) {
				return dropPermanent(ctx, dedup, log, "payment.succeeded", t.EventID, err)
			}
			return err
		}
		markProcessed(ctx, dedup, log, t.EventID)
		return nil
	})
}

// NewMembershipActivatedHandler returns the queue handler for subscription
// activations.
func NewMembershipActivatedHandler(svc entitlement.Service, dedup Deduper, log *slog.Logger) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, t MembershipActivatedTask) error {
		ev, err := billing.ParseMembershipEvent(t.Data)
		if err != nil {
			return dropPermanent(ctx, dedup, log, "membership.activated", t.EventID, err)
		}

		if err := svc.ApplyMembershipActivated(ctx, ev); err != nil {
			if errors.Is(err, entitlement.ErrMissingCompanyID) {
				return dropPermanent(ctx, dedup, log, "membership.activated", t.EventID, err)
			}
			return err
		}
		markProcessed(ctx, dedup, log, t.EventID)
		return nil
	})
}

// NewMembershipDeactivatedHandler returns the queue handler for subscription
// cancellations and expiries.
func NewMembershipDeactivatedHandler(svc entitlement.Service, dedup Deduper, log *slog.Logger) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, t MembershipDeactivatedTask) error {
		ev, err := billing.ParseMembershipEvent(t.Data)
		if err != nil {
			return dropPermanent(ctx, dedup, log, "membership.deactivated", t.EventID, err)
		}

		if err := svc.ApplyMembershipDeactivated(ctx, ev); err != nil {
			if errors.Is(err, entitlement.ErrMissingCompanyID) {
				return dropPermanent(ctx, dedup, log, "membership.deactivated", t.EventID, err)
			}
			return err
		}
		markProcessed(ctx, dedup, log, t.EventID)
		return nil
	})
}

// markProcessed records the event id in the dedup window. A marking failure
// only costs an extra idempotent run if the provider redelivers, so it is
// logged and swallowed.
func markProcessed(ctx context.Context, dedup Deduper, log *slog.Logger, eventID string) {
	if dedup == nil || eventID == "" {
		return
	}
	if err := dedup.Mark(ctx, eventID); err != nil {
		log.WarnContext(ctx, "failed to mark webhook event processed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}
}

// dropPermanent logs a malformed event and tells the queue not to retry:
// redelivering an event that lacks its correlation fields can never succeed.
// The id is still marked processed so redelivered copies stop at the door
// instead of re-entering the queue.
func dropPermanent(ctx context.Context, dedup Deduper, log *slog.Logger, eventType, eventID string, err error) error {
	log.ErrorContext(ctx, "dropping malformed webhook event",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()))
	markProcessed(ctx, dedup, log, eventID)
	return errors.Join(queue.ErrSkipRetry, err)
}
