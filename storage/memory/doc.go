// Package memory provides in-memory implementations of the entitlement
// ledger stores, used in tests and local development. Records are copied on
// the way in and out, so callers cannot alias store internals.
package memory
