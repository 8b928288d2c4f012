// Package webhook receives payment-provider event deliveries and hands them
// to the entitlement engine asynchronously.
//
// The dispatcher's contract is deliberate and load-bearing: parse the
// envelope, classify the event, enqueue recognized ones, and respond 200
// immediately and unconditionally. Providers retry deliveries that do not
// get a fast success response; the design makes those retries harmless
// (idempotent processing) instead of trying to prevent them.
//
// Failures inside the detached processing are terminal for that delivery
// attempt. They are logged, never surfaced to the provider, and repaired by
// the provider's own redelivery combined with idempotent event application.
// Deliveries carrying an event id are additionally deduplicated with a TTL'd
// set-if-absent check, so a burst of duplicates does not even reach the
// queue.
package webhook
