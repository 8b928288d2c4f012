package entitlement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfworks/bookshelf/pkg/billing"
)

// ApplyMembershipActivated moves the merchant to the active state and records
// the subscription identifiers and renewal period from the event.
//
// Re-subscription after cancellation or expiry goes through here as well, so
// the transition is valid from any prior state. A membership whose metadata
// marks it as something other than a subscription (a one-time book purchase)
// is ignored; the purchase reconciler owns those.
func (s *service) ApplyMembershipActivated(ctx context.Context, ev *billing.MembershipEvent) error {
	if ev.Company.ID == "" {
		return ErrMissingCompanyID
	}
	if !ev.IsSubscription() {
		s.log.InfoContext(ctx, "skipping non-subscription membership activation",
			slog.String("membership_id", ev.ID),
			slog.String("metadata_type", ev.Metadata.Type))
		return nil
	}

	merchant, err := s.merchants.Get(ctx, ev.Company.ID)
	switch {
	case errors.Is(err, ErrMerchantNotFound):
		// An activation can land before the merchant's first book action;
		// provision the row so the subscription is not lost.
		merchant = NewMerchant(ev.Company.ID)
	case err != nil:
		return err
	}

	now := s.now()

	startedAt := now
	if ev.RenewalPeriodStart != nil {
		startedAt = *ev.RenewalPeriodStart
	} else if ev.CreatedAt != nil {
		startedAt = *ev.CreatedAt
	}

	// Monthly fallback when the provider omits the period end.
	expiresAt := now.AddDate(0, 1, 0)
	if ev.RenewalPeriodEnd != nil {
		expiresAt = *ev.RenewalPeriodEnd
	}

	merchant.SubscriptionStatus = StatusActive
	merchant.SubscriptionPlanID = ev.Plan.ID
	merchant.SubscriptionID = ev.ID
	merchant.SubscriptionStartedAt = &startedAt
	merchant.SubscriptionExpiresAt = &expiresAt
	merchant.UpdatedAt = now

	if err := s.merchants.Save(ctx, merchant); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription activated",
		slog.String("company_id", ev.Company.ID),
		slog.String("subscription_id", ev.ID),
		slog.String("plan_id", ev.Plan.ID),
		slog.Time("expires_at", expiresAt))
	return nil
}

// ApplyMembershipDeactivated demotes the merchant's subscription. With
// cancel-at-period-end set and a future period end, the subscription becomes
// cancelled but keeps its expiry, so entitlement survives until that date.
// Otherwise it becomes expired and entitlement ends immediately.
func (s *service) ApplyMembershipDeactivated(ctx context.Context, ev *billing.MembershipEvent) error {
	if ev.Company.ID == "" {
		return ErrMissingCompanyID
	}
	if !ev.IsSubscription() {
		s.log.InfoContext(ctx, "skipping non-subscription membership deactivation",
			slog.String("membership_id", ev.ID),
			slog.String("metadata_type", ev.Metadata.Type))
		return nil
	}

	merchant, err := s.merchants.Get(ctx, ev.Company.ID)
	if errors.Is(err, ErrMerchantNotFound) {
		// Nothing to deactivate; the merchant was never provisioned.
		s.log.WarnContext(ctx, "deactivation for unknown merchant",
			slog.String("company_id", ev.Company.ID))
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now()
	if ev.CancelAtPeriodEnd && ev.RenewalPeriodEnd != nil && ev.RenewalPeriodEnd.After(now) {
		merchant.SubscriptionStatus = StatusCancelled
		merchant.SubscriptionExpiresAt = ev.RenewalPeriodEnd
	} else {
		merchant.SubscriptionStatus = StatusExpired
	}
	merchant.UpdatedAt = now

	if err := s.merchants.Save(ctx, merchant); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "subscription deactivated",
		slog.String("company_id", ev.Company.ID),
		slog.String("status", string(merchant.SubscriptionStatus)))
	return nil
}
