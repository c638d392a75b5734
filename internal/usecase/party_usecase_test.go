package usecase_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
	"github.com/iho/khata/internal/usecase/mocks"
)

func TestPartyUseCase_CreateParty(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.CreatePartyInput
		expectError error
	}{
		{
			name:  "customer with phone",
			input: usecase.CreatePartyInput{ShopID: shopID, Name: "  Meena Devi ", Phone: "+91 98765 43210", EntityType: "customer"},
		},
		{
			name:  "supplier with email",
			input: usecase.CreatePartyInput{ShopID: shopID, Name: "Shree Bullion", Email: "accounts@shree.example", EntityType: "SUPPLIER"},
		},
		{
			name:        "empty name",
			input:       usecase.CreatePartyInput{ShopID: shopID, Name: "   ", EntityType: "CUSTOMER"},
			expectError: domain.ErrInvalidPartyName,
		},
		{
			name:        "unknown entity type",
			input:       usecase.CreatePartyInput{ShopID: shopID, Name: "Meena", EntityType: "FRIEND"},
			expectError: domain.ErrInvalidEntityType,
		},
		{
			name:        "bad phone",
			input:       usecase.CreatePartyInput{ShopID: shopID, Name: "Meena", Phone: "12", EntityType: "CUSTOMER"},
			expectError: domain.ErrInvalidPhone,
		},
		{
			name:        "no shop",
			input:       usecase.CreatePartyInput{Name: "Meena", EntityType: "CUSTOMER"},
			expectError: domain.ErrMissingShop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parties := mocks.NewFakePartyRepository()
			outbox := mocks.NewFakeOutboxRepository()
			uc := usecase.NewPartyUseCase(mocks.NewFakeTransactionManager(), parties, outbox, mocks.NewFakeAuditRepository(), mocks.NewFakeIDGenerator(), newTestMetrics(t))

			party, err := uc.CreateParty(context.Background(), tt.input)
			if tt.expectError != nil {
				if !errorsIs(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				if len(outbox.Events) != 0 {
					t.Errorf("expected no events, got %d", len(outbox.Events))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			stored, err := parties.GetByID(context.Background(), shopID, party.ID)
			if err != nil {
				t.Fatalf("party not stored: %v", err)
			}
			if stored.Name != party.Name {
				t.Errorf("expected name %q, got %q", party.Name, stored.Name)
			}
			if outbox.Events[0].EventType != domain.EventTypePartyCreated {
				t.Errorf("expected %s event, got %s", domain.EventTypePartyCreated, outbox.Events[0].EventType)
			}
		})
	}
}

func TestPartyUseCase_GetParty_Deleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gone := customer("cust-1")
	deletedAt := day(2024, 2, 1)
	gone.DeletedAt = &deletedAt

	partyRepo := mocks.NewMockPartyRepository(ctrl)
	partyRepo.EXPECT().GetByID(gomock.Any(), shopID, "cust-1").Return(gone, nil)

	uc := usecase.NewPartyUseCase(nil, partyRepo, nil, nil, nil, nil)

	if _, err := uc.GetParty(context.Background(), shopID, "cust-1"); err != domain.ErrPartyNotFound {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
}

func TestPartyUseCase_ListParties(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	partyRepo := mocks.NewMockPartyRepository(ctrl)
	partyRepo.EXPECT().List(gomock.Any(), shopID, domain.PartyFilter{
		EntityType: domain.EntityCustomer,
		Search:     "meena",
		Limit:      50,
		Offset:     0,
	}).Return([]*domain.PartySummary{
		{Party: customer("cust-1"), TotalDebit: dec("500"), TotalCredit: dec("200"), EntryCount: 2},
	}, nil)

	uc := usecase.NewPartyUseCase(nil, partyRepo, nil, nil, nil, nil)

	summaries, err := uc.ListParties(context.Background(), usecase.ListPartiesInput{
		ShopID:     shopID,
		EntityType: "customer",
		Search:     " meena ",
		Offset:     -5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 party, got %d", len(summaries))
	}
	if !summaries[0].Balance().Equal(dec("300")) {
		t.Errorf("expected balance 300, got %s", summaries[0].Balance())
	}

	if _, err := uc.ListParties(context.Background(), usecase.ListPartiesInput{ShopID: shopID, EntityType: "friend"}); err != domain.ErrInvalidEntityType {
		t.Errorf("expected ErrInvalidEntityType, got %v", err)
	}
}

func TestPartyUseCase_DeleteParty(t *testing.T) {
	parties := mocks.NewFakePartyRepository(customer("cust-1"))
	outbox := mocks.NewFakeOutboxRepository()
	audit := mocks.NewFakeAuditRepository()
	uc := usecase.NewPartyUseCase(mocks.NewFakeTransactionManager(), parties, outbox, audit, mocks.NewFakeIDGenerator(), nil)

	if err := uc.DeleteParty(context.Background(), shopID, "cust-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uc.GetParty(context.Background(), shopID, "cust-1"); err != domain.ErrPartyNotFound {
		t.Errorf("expected deleted party to be hidden, got %v", err)
	}
	if err := uc.DeleteParty(context.Background(), shopID, "cust-1"); err != domain.ErrPartyNotFound {
		t.Errorf("expected second delete to fail, got %v", err)
	}
	if len(audit.Logs) != 1 || audit.Logs[0].Action != string(domain.AuditActionPartyDelete) {
		t.Errorf("expected one party.delete audit log, got %+v", audit.Logs)
	}
}
