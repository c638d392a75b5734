package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

type partyServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error)
	getFn    func(ctx context.Context, shopID, id string) (*domain.Party, error)
	listFn   func(ctx context.Context, input usecase.ListPartiesInput) ([]*domain.PartySummary, error)
	deleteFn func(ctx context.Context, shopID, id string) error
}

func (s *partyServiceStub) CreateParty(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error) {
	return s.createFn(ctx, input)
}

func (s *partyServiceStub) GetParty(ctx context.Context, shopID, id string) (*domain.Party, error) {
	return s.getFn(ctx, shopID, id)
}

func (s *partyServiceStub) ListParties(ctx context.Context, input usecase.ListPartiesInput) ([]*domain.PartySummary, error) {
	return s.listFn(ctx, input)
}

func (s *partyServiceStub) DeleteParty(ctx context.Context, shopID, id string) error {
	return s.deleteFn(ctx, shopID, id)
}

func TestPartyHandler_Create_Success(t *testing.T) {
	var captured usecase.CreatePartyInput
	h := NewPartyHandler(&partyServiceStub{
		createFn: func(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error) {
			captured = input
			return &domain.Party{ID: "p-1", ShopID: input.ShopID, Name: input.Name, EntityType: domain.EntityCustomer}, nil
		},
	})

	body, _ := json.Marshal(dto.CreatePartyRequest{Name: "Ravi", EntityType: "CUSTOMER"})
	req := withShop(httptest.NewRequest(http.MethodPost, "/parties", bytes.NewReader(body)))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ShopID != testShop || captured.Name != "Ravi" {
		t.Fatalf("expected shop-scoped input, got %+v", captured)
	}

	var resp dto.PartyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "p-1" || resp.EntityType != "CUSTOMER" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPartyHandler_Create_RequiresShop(t *testing.T) {
	h := NewPartyHandler(&partyServiceStub{
		createFn: func(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error) {
			t.Fatal("CreateParty should not be called without a shop")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/parties", bytes.NewBufferString(`{"name":"Ravi"}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPartyHandler_Create_ValidationError(t *testing.T) {
	h := NewPartyHandler(&partyServiceStub{
		createFn: func(ctx context.Context, input usecase.CreatePartyInput) (*domain.Party, error) {
			return nil, domain.ErrInvalidEntityType
		},
	})

	req := withShop(httptest.NewRequest(http.MethodPost, "/parties", bytes.NewBufferString(`{"name":"Ravi","entity_type":"ALIEN"}`)))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != CodeValidation {
		t.Fatalf("expected validation code, got %+v", resp)
	}
}

func TestPartyHandler_Get_NotFound(t *testing.T) {
	h := NewPartyHandler(&partyServiceStub{
		getFn: func(ctx context.Context, shopID, id string) (*domain.Party, error) {
			if id != "missing" {
				t.Fatalf("expected id missing, got %s", id)
			}
			return nil, domain.ErrPartyNotFound
		},
	})

	req := setChiURLParam(withShop(httptest.NewRequest(http.MethodGet, "/parties/missing", nil)), "id", "missing")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != CodeNotFound {
		t.Fatalf("expected not_found code, got %+v", resp)
	}
}

func TestPartyHandler_List(t *testing.T) {
	var captured usecase.ListPartiesInput
	h := NewPartyHandler(&partyServiceStub{
		listFn: func(ctx context.Context, input usecase.ListPartiesInput) ([]*domain.PartySummary, error) {
			captured = input
			return []*domain.PartySummary{{
				Party:       &domain.Party{ID: "p-1", Name: "Ravi", EntityType: domain.EntityCustomer},
				TotalDebit:  decimal.RequireFromString("5000"),
				TotalCredit: decimal.RequireFromString("2000"),
				EntryCount:  2,
			}}, nil
		},
	})

	req := withShop(httptest.NewRequest(http.MethodGet, "/parties?entity_type=CUSTOMER&search=rav&limit=10&offset=5", nil))
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.EntityType != "CUSTOMER" || captured.Search != "rav" || captured.Limit != 10 || captured.Offset != 5 {
		t.Fatalf("unexpected list input: %+v", captured)
	}

	var resp dto.ListPartiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || resp.Parties[0].Balance.String() != "3000" || resp.Parties[0].BalanceLabel != "Customer will pay" {
		t.Fatalf("unexpected response: %+v", resp.Parties[0])
	}
}

func TestPartyHandler_Delete(t *testing.T) {
	var deleted string
	h := NewPartyHandler(&partyServiceStub{
		deleteFn: func(ctx context.Context, shopID, id string) error {
			deleted = id
			return nil
		},
	})

	req := setChiURLParam(withShop(httptest.NewRequest(http.MethodDelete, "/parties/p-1", nil)), "id", "p-1")
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent || deleted != "p-1" {
		t.Fatalf("expected 204 deleting p-1, got %d (%s)", rec.Code, deleted)
	}
}

func TestPartyHandler_Labels(t *testing.T) {
	h := NewPartyHandler(&partyServiceStub{})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/entity-types/worker/labels", nil), "type", "worker")
	rec := httptest.NewRecorder()
	h.Labels(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.LabelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EntityType != "WORKER" || resp.Labels != domain.LabelsFor(domain.EntityWorker) {
		t.Fatalf("unexpected labels: %+v", resp)
	}

	req = setChiURLParam(httptest.NewRequest(http.MethodGet, "/entity-types/alien/labels", nil), "type", "alien")
	rec = httptest.NewRecorder()
	h.Labels(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}
}
