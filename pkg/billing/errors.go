package billing

import "errors"

var (
	ErrMissingAPIKey      = errors.New("billing: API key is required")
	ErrInvalidEnvelope    = errors.New("billing: invalid webhook envelope")
	ErrInvalidEventData   = errors.New("billing: invalid webhook event data")
	ErrInvalidAmount      = errors.New("billing: invalid monetary amount")
	ErrRequestFailed      = errors.New("billing: provider request failed")
	ErrUnexpectedResponse = errors.New("billing: unexpected provider response")
	ErrCompanyNotFound    = errors.New("billing: company not found")
)
