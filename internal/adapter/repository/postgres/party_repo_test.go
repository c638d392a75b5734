package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
)

var partyRowColumns = []string{"id", "shop_id", "name", "phone", "email", "address", "entity_type", "created_at", "updated_at", "deleted_at"}

func TestPartyRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	tx := beginMockTx(t, mock)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO parties").
		WithArgs("party-1", "shop-1", "Meena Devi", "+919876543210", "", "", "CUSTOMER", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPartyRepository(mock, nil)
	err := repo.Create(context.Background(), tx, &domain.Party{
		ID: "party-1", ShopID: "shop-1", Name: "Meena Devi", Phone: "+919876543210",
		EntityType: domain.EntityCustomer, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, mock)
}

func TestPartyRepositoryGetByIDNotFound(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery("FROM parties WHERE shop_id").
		WithArgs("shop-1", "nobody").
		WillReturnRows(pgxmock.NewRows(partyRowColumns))

	repo := NewPartyRepository(mock, nil)
	if _, err := repo.GetByID(context.Background(), "shop-1", "nobody"); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
}

func TestPartyRepositoryListAggregates(t *testing.T) {
	mock := newMockPool(t)
	created := timeToPgTimestamptz(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`p.entity_type = \$2 AND \(p.name ILIKE \$3 OR p.phone LIKE \$3\) GROUP BY p.id`).
		WithArgs("shop-1", "CUSTOMER", "%meena%", 50, 0).
		WillReturnRows(pgxmock.NewRows(append(partyRowColumns, "total_debit", "total_credit", "entry_count")).AddRow(
			"party-1", "shop-1", "Meena Devi", "", "", "", "CUSTOMER", created, created, pgtype.Timestamptz{},
			num("7000.00"), num("2300.00"), 4,
		))

	repo := NewPartyRepository(mock, nil)
	summaries, err := repo.List(context.Background(), "shop-1", domain.PartyFilter{
		EntityType: domain.EntityCustomer,
		Search:     "meena",
		Limit:      50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	s := summaries[0]
	if s.Party.Name != "Meena Devi" || s.EntryCount != 4 {
		t.Errorf("unexpected summary %+v", s)
	}
	if !s.Balance().Equal(decimal.RequireFromString("4700")) {
		t.Errorf("expected balance 4700, got %s", s.Balance())
	}
	assertExpectations(t, mock)
}

func TestPartyRepositorySoftDeleteMissing(t *testing.T) {
	mock := newMockPool(t)
	tx := beginMockTx(t, mock)

	mock.ExpectExec("UPDATE parties SET deleted_at").
		WithArgs("party-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPartyRepository(mock, nil)
	if err := repo.SoftDelete(context.Background(), tx, "party-1", time.Now()); !errors.Is(err, domain.ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}
}
