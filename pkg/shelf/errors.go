package shelf

import "errors"

var (
	ErrCreateNotAllowed = errors.New("shelf: book creation not allowed")
	ErrBookNotOwned     = errors.New("shelf: book does not belong to this company")
	ErrPriceRequired    = errors.New("shelf: paywalled books require a price and currency")
	ErrBookNotPaywalled = errors.New("shelf: book is not behind a paywall")
)

// QuotaError carries the human-readable rejection produced by the
// entitlement gate. It unwraps to ErrCreateNotAllowed so callers can match
// the class without caring about the message.
type QuotaError struct {
	Reason               string
	RequiresSubscription bool
}

func (e *QuotaError) Error() string { return "shelf: " + e.Reason }

func (e *QuotaError) Unwrap() error { return ErrCreateNotAllowed }
