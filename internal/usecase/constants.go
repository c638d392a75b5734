package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultLoanLockTTL bounds how long a crashed writer can block a loan
	DefaultLoanLockTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// MaxAttachmentSize is the largest document accepted for upload
	MaxAttachmentSize = 10 << 20

	// sweepPageSize is the page size used by the overdue and reminder sweeps
	sweepPageSize = 200

	systemActor = "system"
)
