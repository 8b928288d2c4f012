// Package entitlement is the decision engine behind the bookshelf paywall.
//
// It answers two questions: may this company create another book, and may
// this user view this paywalled book. Both answers combine three sources of
// truth kept in the ledger store:
//
//   - the merchant's subscription state, driven by membership lifecycle
//     events from the payment provider;
//   - the free-tier flag, an allowance of one concurrently-existing book
//     without a subscription;
//   - the per-(book,user) access grant ledger, written exactly once per
//     successful purchase.
//
// Webhook deliveries are at-least-once and may arrive duplicated or out of
// order, so every event application here is idempotent: replaying a payment
// event is a no-op reported as AlreadyHadAccess, and membership events
// overwrite subscription state rather than increment it.
//
// The package holds no transport or storage concerns. Stores are consumed as
// interfaces; HTTP and queue plumbing live in pkg/webhook and handler.
package entitlement
