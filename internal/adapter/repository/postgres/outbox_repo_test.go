package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/khata/internal/domain"
)

func TestOutboxRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	tx := beginMockTx(t, mock)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("evt-1", "loan-1", "loan", "loan.closed", []byte(`{"loan_id":"loan-1"}`), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewOutboxRepository(mock, nil)
	err := repo.Create(context.Background(), tx, &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "loan-1",
		AggregateType: domain.AggregateTypeLoan,
		EventType:     domain.EventTypeLoanClosed,
		Payload:       map[string]any{"loan_id": "loan-1"},
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, mock)
}

func TestOutboxRepositoryGetUnpublished(t *testing.T) {
	mock := newMockPool(t)
	created := timeToPgTimestamptz(time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC))

	mock.ExpectQuery("WHERE NOT published").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}).
			AddRow("evt-1", "loan-1", "loan", "loan.reminder_due", []byte(`{"due_date":"2024-03-12"}`), created, pgtype.Timestamptz{}, false))

	repo := NewOutboxRepository(mock, nil)
	events, err := repo.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Payload["due_date"] != "2024-03-12" {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].PublishedAt != nil {
		t.Errorf("expected no published_at, got %v", events[0].PublishedAt)
	}
	assertExpectations(t, mock)
}

func TestOutboxRepositoryMarkPublished(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec("UPDATE outbox_events SET published = TRUE").
		WithArgs("evt-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewOutboxRepository(mock, nil)
	if err := repo.MarkPublished(context.Background(), "evt-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, mock)
}
