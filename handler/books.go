package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfworks/bookshelf/pkg/entitlement"
	"github.com/shelfworks/bookshelf/pkg/shelf"
)

type moneyPayload struct {
	// Amount is in minor currency units, e.g. 590 for $5.90.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type bookPayload struct {
	ID              uuid.UUID     `json:"id"`
	CompanyID       string        `json:"companyId"`
	Title           string        `json:"title"`
	IsBehindPaywall bool          `json:"isBehindPaywall"`
	Price           *moneyPayload `json:"price,omitempty"`
	DisplayOrder    int           `json:"displayOrder"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func toMoneyPayload(m *entitlement.Money) *moneyPayload {
	if m == nil {
		return nil
	}
	return &moneyPayload{Amount: m.Amount, Currency: m.Currency}
}

func toMoney(p *moneyPayload) *entitlement.Money {
	if p == nil {
		return nil
	}
	return &entitlement.Money{Amount: p.Amount, Currency: p.Currency}
}

func toBookPayload(b *entitlement.Book) bookPayload {
	return bookPayload{
		ID:              b.ID,
		CompanyID:       b.CompanyID,
		Title:           b.Title,
		IsBehindPaywall: b.IsBehindPaywall,
		Price:           toMoneyPayload(b.Price),
		DisplayOrder:    b.DisplayOrder,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type booksHandler struct {
	shelf shelf.Service
}

func (h *booksHandler) list(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	books, err := h.shelf.ListBooks(r.Context(), companyID)
	if err != nil {
		respondError(w, err)
		return
	}

	payload := make([]bookPayload, 0, len(books))
	for i := range books {
		payload = append(payload, toBookPayload(&books[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": payload})
}

func (h *booksHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title           string        `json:"title"`
		IsBehindPaywall bool          `json:"isBehindPaywall"`
		Price           *moneyPayload `json:"price"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}
	if body.Title == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("title is required")))
		return
	}

	book, err := h.shelf.CreateBook(r.Context(), shelf.CreateBookInput{
		CompanyID:       chi.URLParam(r, "companyID"),
		Title:           body.Title,
		IsBehindPaywall: body.IsBehindPaywall,
		Price:           toMoney(body.Price),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBookPayload(book))
}

func (h *booksHandler) update(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}

	var body struct {
		Title           *string       `json:"title"`
		IsBehindPaywall *bool         `json:"isBehindPaywall"`
		Price           *moneyPayload `json:"price"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	book, err := h.shelf.UpdateBook(r.Context(), shelf.UpdateBookInput{
		CompanyID:       chi.URLParam(r, "companyID"),
		BookID:          bookID,
		Title:           body.Title,
		IsBehindPaywall: body.IsBehindPaywall,
		Price:           toMoney(body.Price),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toBookPayload(book))
}

func (h *booksHandler) delete(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}

	if err := h.shelf.DeleteBook(r.Context(), chi.URLParam(r, "companyID"), bookID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *booksHandler) reorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Orders []struct {
			BookID       uuid.UUID `json:"bookId"`
			DisplayOrder int       `json:"displayOrder"`
		} `json:"orders"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	orders := make([]shelf.BookOrder, 0, len(body.Orders))
	for _, o := range body.Orders {
		orders = append(orders, shelf.BookOrder{BookID: o.BookID, DisplayOrder: o.DisplayOrder})
	}

	if err := h.shelf.ReorderBooks(r.Context(), chi.URLParam(r, "companyID"), orders); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *booksHandler) checkout(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, errors.Join(errBadRequest, err))
		return
	}

	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}
	if body.UserID == "" {
		respondError(w, errors.Join(errBadRequest, errors.New("userId is required")))
		return
	}

	checkout, err := h.shelf.CreateBookCheckout(r.Context(), bookID, body.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, checkout)
}

func (h *booksHandler) subscriptionCheckout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	checkout, err := h.shelf.CreateSubscriptionCheckout(r.Context(), chi.URLParam(r, "companyID"), body.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, checkout)
}
