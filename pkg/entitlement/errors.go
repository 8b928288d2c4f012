package entitlement

import "errors"

var (
	ErrMerchantNotFound = errors.New("entitlement: merchant not found")
	ErrBookNotFound     = errors.New("entitlement: book not found")

	// ErrMissingCompanyID marks a membership event without a company
	// reference. The event can never be correlated, so it is dropped rather
	// than retried.
	ErrMissingCompanyID = errors.New("entitlement: membership event is missing company ID")

	// ErrMissingPurchaseMetadata marks a payment event without usable
	// bookId/userId metadata. Permanent for the same reason.
	ErrMissingPurchaseMetadata = errors.New("entitlement: payment event is missing purchase metadata")

	// ErrInvalidGrant is returned for direct grant calls without both keys.
	ErrInvalidGrant = errors.New("entitlement: book and user IDs are required to grant access")

	// ErrStoreFailure wraps backend storage errors so callers can tell an
	// infrastructure fault from a domain outcome.
	ErrStoreFailure = errors.New("entitlement: store operation failed")
)
