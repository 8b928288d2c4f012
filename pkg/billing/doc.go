// Package billing integrates with the Whop payment platform.
//
// It covers two directions of traffic:
//
//   - Outbound: creating checkout configurations for one-time book purchases
//     and recurring subscriptions, and retrieving company records. These calls
//     attach metadata that later comes back on webhook events, which is how
//     the entitlement engine correlates payments with books and users.
//
//   - Inbound: parsing the webhook envelope {type, data} and the event
//     payloads it carries (payment.succeeded, membership.activated,
//     membership.deactivated).
//
// The package does not decide anything. Event interpretation belongs to
// pkg/entitlement; delivery handling belongs to pkg/webhook.
package billing
