package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	AdmitEntry(ctx context.Context, input usecase.AdmitEntryInput) (*domain.Entry, error)
	GetEntry(ctx context.Context, shopID, entryID string) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, shopID, entryID string) error
	GetStatement(ctx context.Context, input usecase.StatementInput) (*usecase.Statement, error)
}

// EntryHandler handles ledger entry HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// Create records an entry against the party in the URL.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.entryUC.AdmitEntry(r.Context(), req.ToUseCaseInput(shop, chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, r, "failed to record entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	entry, err := h.entryUC.GetEntry(r.Context(), shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get entry", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete soft-deletes an entry.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	if err := h.entryUC.DeleteEntry(r.Context(), shop, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, "failed to delete entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Statement returns the party's running balance, optionally limited to
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *EntryHandler) Statement(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid from date", err.Error())
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid to date", err.Error())
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid date range", "to is before from")
		return
	}

	statement, err := h.entryUC.GetStatement(r.Context(), usecase.StatementInput{
		ShopID:  shop,
		PartyID: chi.URLParam(r, "id"),
		From:    from,
		To:      to,
	})
	if err != nil {
		respondError(w, r, "failed to build statement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromUseCase(statement))
}
