package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
)

type entitlementHandler struct {
	svc entitlement.Service
}

type snapshotPayload struct {
	CompanyID             string     `json:"companyId"`
	Status                string     `json:"status"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
	BookCount             int64      `json:"bookCount"`
	FreeBookUsed          bool       `json:"freeBookUsed"`
	FreeBookAvailable     bool       `json:"freeBookAvailable"`
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
}

func (h *entitlementHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.SubscriptionSnapshot(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshotPayload{
		CompanyID:             snap.CompanyID,
		Status:                string(snap.Status),
		ExpiresAt:             snap.ExpiresAt,
		BookCount:             snap.BookCount,
		FreeBookUsed:          snap.FreeBookUsed,
		FreeBookAvailable:     snap.FreeBookAvailable,
		HasActiveSubscription: snap.HasActiveSubscription,
	})
}

func (h *entitlementHandler) canCreate(w http.ResponseWriter, r *http.Request) {
	decision, err := h.svc.CanCreateBook(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"canCreate":            decision.CanCreate,
		"reason":               decision.Reason,
		"requiresSubscription": decision.RequiresSubscription,
	})
}

func (h *entitlementHandler) checkAccess(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("userId query parameter is required")))
		return
	}

	decision, err := h.svc.CheckBookAccess(r.Context(), bookID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"hasAccess": decision.HasAccess})
}

// grant records paid access directly. It backs the client's post-checkout
// confirmation poll, which may race the provider webhook for the same
// purchase; both paths converge on the same idempotent insert.
func (h *entitlementHandler) grant(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}

	var body struct {
		UserID string        `json:"userId"`
		Paid   *moneyPayload `json:"paid"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.svc.GrantAccess(r.Context(), bookID, body.UserID, toMoney(body.Paid))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"granted":          true,
		"alreadyHadAccess": result.AlreadyHadAccess,
	})
}
