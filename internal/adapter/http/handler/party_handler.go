package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// PartyService defines the behavior needed by PartyHandler.
type PartyService interface {
	CreateParty(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error)
	GetParty(ctx context.Context, shopID, id string) (*domain.Party, error)
	ListParties(ctx context.Context, input usecase.ListPartiesInput) ([]*domain.PartySummary, error)
	DeleteParty(ctx context.Context, shopID, id string) error
}

// PartyHandler handles party-related HTTP requests.
type PartyHandler struct {
	partyUC PartyService
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(partyUC PartyService) *PartyHandler {
	return &PartyHandler{partyUC: partyUC}
}

// Create creates a new party.
func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	var req dto.CreatePartyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	party, err := h.partyUC.CreateParty(r.Context(), req.ToUseCaseInput(shop))
	if err != nil {
		respondError(w, r, "failed to create party", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PartyFromDomain(party))
}

// Get retrieves a party by ID.
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	party, err := h.partyUC.GetParty(r.Context(), shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get party", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PartyFromDomain(party))
}

// List lists the shop's parties with their balances.
func (h *PartyHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	summaries, err := h.partyUC.ListParties(r.Context(), usecase.ListPartiesInput{
		ShopID:     shop,
		EntityType: query.Get("entity_type"),
		Search:     query.Get("search"),
		Limit:      parseIntQuery(r, "limit", 50),
		Offset:     parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		respondError(w, r, "failed to list parties", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListPartiesResponse{
		Parties: dto.PartySummariesFromDomain(summaries),
		Total:   int64(len(summaries)),
	})
}

// Delete soft-deletes a party.
func (h *PartyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	if err := h.partyUC.DeleteParty(r.Context(), shop, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, "failed to delete party", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Labels returns the display labels of an entity type.
func (h *PartyHandler) Labels(w http.ResponseWriter, r *http.Request) {
	entityType, err := domain.ParseEntityType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, r, "unknown entity type", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LabelsResponse{
		EntityType: string(entityType),
		Labels:     domain.LabelsFor(entityType),
	})
}
