package usecase

import (
	"context"
	"io"
	"time"

	"github.com/iho/khata/internal/domain"
)

// PartyRepository defines data access for parties.
type PartyRepository interface {
	Create(ctx context.Context, tx Transaction, party *domain.Party) error
	GetByID(ctx context.Context, shopID, id string) (*domain.Party, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, shopID, id string) (*domain.Party, error)
	List(ctx context.Context, shopID string, filter domain.PartyFilter) ([]*domain.PartySummary, error)
	SoftDelete(ctx context.Context, tx Transaction, id string, deletedAt time.Time) error
}

// EntryRepository defines data access for ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, shopID, id string) (*domain.Entry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, shopID, id string) (*domain.Entry, error)
	// ListByParty returns non-deleted entries ordered by transaction date and creation time.
	ListByParty(ctx context.Context, shopID, partyID string) ([]*domain.Entry, error)
	SoftDelete(ctx context.Context, tx Transaction, id string, deletedAt time.Time) error
}

// LoanRepository defines data access for loans with their collateral and payments.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByID(ctx context.Context, shopID, id string) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, shopID, id string) (*domain.Loan, error)
	List(ctx context.Context, shopID string, filter domain.LoanFilter) ([]*domain.Loan, error)
	// ListOpen returns ACTIVE and OVERDUE loans of every shop, payments included.
	ListOpen(ctx context.Context, limit, offset int) ([]*domain.Loan, error)
	// Update persists status, totals and settlement fields when loan.Version
	// still matches the stored row, then increments loan.Version.
	Update(ctx context.Context, tx Transaction, loan *domain.Loan) error
}

// PaymentRepository defines data access for loan payments. Payments are read
// back as part of the loan through LoanRepository.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// LoanLocker serializes mutations of a single loan across service instances.
type LoanLocker interface {
	// Acquire returns a token that must be passed to Release. It fails with
	// domain.ErrLoanLocked when another holder owns the lock.
	Acquire(ctx context.Context, loanID string, ttl time.Duration) (string, error)
	Release(ctx context.Context, loanID, token string) error
}

// AttachmentStore keeps document blobs and hands back their location.
type AttachmentStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
