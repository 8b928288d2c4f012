// Package shelf manages a merchant's published books: creation, edits,
// reordering, deletion, and the checkout configurations that sell them.
//
// Every mutation defers to pkg/entitlement for the decisions that matter:
// creation is gated by the free tier and subscription state, the first
// created book consumes the free-tier allowance, and deleting the last book
// restores it. The package also provisions the merchant ledger row lazily,
// pulling the company record from the billing provider on first contact.
package shelf
