package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testParty(entity EntityType) *Party {
	return &Party{ID: "party-1", ShopID: "shop-1", Name: "Ramesh", EntityType: entity}
}

func TestInferTransactionType(t *testing.T) {
	tests := []struct {
		entity EntityType
		entry  EntryType
		want   TransactionType
	}{
		{EntityCustomer, EntryDebit, TransactionSale},
		{EntityCustomer, EntryCredit, TransactionPayment},
		{EntitySupplier, EntryCredit, TransactionPurchase},
		{EntitySupplier, EntryDebit, TransactionPayment},
		{EntityWorker, EntryDebit, TransactionOdhara},
		{EntityWorker, EntryCredit, TransactionJama},
		{EntityPartner, EntryDebit, TransactionOdhara},
		{EntityPartner, EntryCredit, TransactionJama},
		{EntityOther, EntryDebit, TransactionOdhara},
		{EntityOther, EntryCredit, TransactionJama},
	}

	for _, tt := range tests {
		t.Run(string(tt.entity)+"_"+string(tt.entry), func(t *testing.T) {
			if got := InferTransactionType(tt.entity, tt.entry); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAdmitEntry(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)
	txDate := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)

	t.Run("infers transaction type", func(t *testing.T) {
		entry, err := AdmitEntry(testParty(EntityCustomer), EntryInput{
			ID:              "entry-1",
			Amount:          "2500.50",
			EntryType:       "debit",
			Description:     "  gold chain  ",
			TransactionDate: txDate,
		}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if entry.TransactionType != TransactionSale {
			t.Errorf("expected SALE, got %s", entry.TransactionType)
		}
		if entry.EntryType != EntryDebit {
			t.Errorf("expected DEBIT, got %s", entry.EntryType)
		}
		if !entry.Amount.Equal(decimal.RequireFromString("2500.5")) {
			t.Errorf("unexpected amount %s", entry.Amount)
		}
		if entry.Description != "gold chain" {
			t.Errorf("expected trimmed description, got %q", entry.Description)
		}
		if !entry.TransactionDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected date-only transaction date, got %s", entry.TransactionDate)
		}
		if entry.ShopID != "shop-1" || entry.PartyID != "party-1" {
			t.Errorf("entry not scoped to party: %+v", entry)
		}
		if !entry.CreatedAt.Equal(now) {
			t.Errorf("expected created at %s, got %s", now, entry.CreatedAt)
		}
	})

	t.Run("keeps explicit transaction type", func(t *testing.T) {
		entry, err := AdmitEntry(testParty(EntityCustomer), EntryInput{
			Amount:          "100",
			EntryType:       "DEBIT",
			TransactionType: "making_charge",
			TransactionDate: txDate,
		}, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.TransactionType != "MAKING_CHARGE" {
			t.Errorf("expected MAKING_CHARGE, got %s", entry.TransactionType)
		}
	})

	t.Run("rejects non-positive amounts for both directions", func(t *testing.T) {
		for _, entryType := range []string{"DEBIT", "CREDIT"} {
			for _, amount := range []string{"0", "-1", "-0.01", "abc", ""} {
				_, err := AdmitEntry(testParty(EntityCustomer), EntryInput{
					Amount:          amount,
					EntryType:       entryType,
					TransactionDate: txDate,
				}, now)
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("%s %q: expected ErrInvalidAmount, got %v", entryType, amount, err)
				}
			}
		}
	})

	t.Run("rejects unknown entry type", func(t *testing.T) {
		_, err := AdmitEntry(testParty(EntityCustomer), EntryInput{
			Amount:          "10",
			EntryType:       "REFUND",
			TransactionDate: txDate,
		}, now)
		if !errors.Is(err, ErrInvalidEntryType) {
			t.Errorf("expected ErrInvalidEntryType, got %v", err)
		}
	})

	t.Run("requires transaction date", func(t *testing.T) {
		_, err := AdmitEntry(testParty(EntityCustomer), EntryInput{Amount: "10", EntryType: "DEBIT"}, now)
		if !errors.Is(err, ErrInvalidTransactDate) {
			t.Errorf("expected ErrInvalidTransactDate, got %v", err)
		}
	})

	t.Run("rejects deleted party", func(t *testing.T) {
		party := testParty(EntityCustomer)
		_ = party.SoftDelete(now)

		_, err := AdmitEntry(party, EntryInput{Amount: "10", EntryType: "DEBIT", TransactionDate: txDate}, now)
		if !errors.Is(err, ErrPartyNotFound) {
			t.Errorf("expected ErrPartyNotFound, got %v", err)
		}
	})
}

func TestEntry_SoftDelete(t *testing.T) {
	entry := &Entry{ID: "entry-1", Amount: decimal.NewFromInt(10), EntryType: EntryDebit}
	now := time.Now()

	if err := entry.SoftDelete(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.IsDeleted() {
		t.Fatal("expected entry to be deleted")
	}
	if err := entry.SoftDelete(now); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound on second delete, got %v", err)
	}
}

func TestParty_Validate(t *testing.T) {
	tests := []struct {
		name        string
		party       Party
		expectError error
	}{
		{"valid", Party{Name: "Sita", EntityType: EntityCustomer, Phone: "+91 98765 43210"}, nil},
		{"missing name", Party{Name: " ", EntityType: EntityCustomer}, ErrInvalidPartyName},
		{"unknown entity", Party{Name: "Sita", EntityType: "BANK"}, ErrInvalidEntityType},
		{"bad phone", Party{Name: "Sita", EntityType: EntitySupplier, Phone: "12"}, ErrInvalidPhone},
		{"bad email", Party{Name: "Sita", EntityType: EntityWorker, Email: "nope"}, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.party.Validate()
			if tt.expectError == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectError != nil && !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestLabelsFor(t *testing.T) {
	if LabelsFor(EntitySupplier).Received != "Purchase" {
		t.Errorf("unexpected supplier labels: %+v", LabelsFor(EntitySupplier))
	}
	if LabelsFor("UNKNOWN") != LabelsFor(EntityOther) {
		t.Error("expected unknown entity types to fall back to OTHER labels")
	}
}
