package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelfworks/bookshelf/pkg/billing"
	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/shelf"
)

type errorResponse struct {
	Error                string `json:"error"`
	RequiresSubscription bool   `json:"requiresSubscription,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps domain errors to HTTP status codes. Unrecognised errors
// become opaque 500s so store internals never leak to clients.
func respondError(w http.ResponseWriter, err error) {
	var quota *shelf.QuotaError
	if errors.As(err, &quota) {
		respondJSON(w, http.StatusForbidden, errorResponse{
			Error:                quota.Reason,
			RequiresSubscription: quota.RequiresSubscription,
		})
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, entitlement.ErrBookNotFound),
		errors.Is(err, entitlement.ErrMerchantNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, shelf.ErrBookNotOwned):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, shelf.ErrPriceRequired),
		errors.Is(err, shelf.ErrBookNotPaywalled),
		errors.Is(err, entitlement.ErrInvalidGrant),
		errors.Is(err, billing.ErrInvalidAmount):
		status = http.StatusUnprocessableEntity
		msg = err.Error()
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		msg = err.Error()
	}

	respondJSON(w, status, errorResponse{Error: msg})
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
