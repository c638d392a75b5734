package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// LoanUseCase orchestrates the loan engine: it loads fresh state, runs the
// engine and persists the result under a per-loan lock and row lock.
type LoanUseCase struct {
	txManager   TransactionManager
	loanRepo    LoanRepository
	paymentRepo PaymentRepository
	partyRepo   PartyRepository
	locker      LoanLocker
	idGen       IDGenerator
	journal     journal
	lockTTL     time.Duration
	location    *time.Location
}

// LoanUseCaseConfig carries the collaborators of a LoanUseCase.
type LoanUseCaseConfig struct {
	TxManager   TransactionManager
	LoanRepo    LoanRepository
	PaymentRepo PaymentRepository
	PartyRepo   PartyRepository
	OutboxRepo  OutboxRepository
	AuditRepo   AuditRepository
	Locker      LoanLocker // optional
	IDGen       IDGenerator
	Metrics     *metrics.Metrics
	LockTTL     time.Duration
	Location    *time.Location
}

// NewLoanUseCase creates a new LoanUseCase.
func NewLoanUseCase(cfg LoanUseCaseConfig) *LoanUseCase {
	if cfg.LockTTL == 0 {
		cfg.LockTTL = DefaultLoanLockTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LoanUseCase{
		txManager:   cfg.TxManager,
		loanRepo:    cfg.LoanRepo,
		paymentRepo: cfg.PaymentRepo,
		partyRepo:   cfg.PartyRepo,
		locker:      cfg.Locker,
		idGen:       cfg.IDGen,
		journal:     journal{outboxRepo: cfg.OutboxRepo, auditRepo: cfg.AuditRepo, idGen: cfg.IDGen, metrics: cfg.Metrics},
		lockTTL:     cfg.LockTTL,
		location:    cfg.Location,
	}
}

// Today returns the current calendar date in the shop time zone.
func (uc *LoanUseCase) Today() time.Time {
	return domain.DateOnly(time.Now().In(uc.location))
}

// CreateLoanInput represents input for disbursing a loan.
type CreateLoanInput struct {
	ShopID        string
	LoanNumber    string
	CustomerID    string
	Principal     decimal.Decimal
	InterestRate  decimal.Decimal
	RepaymentType string
	TenureMonths  int
	StartDate     *time.Time
	EndDate       *time.Time
	Notes         string
	Collateral    []domain.CollateralItem
}

// CreateLoan validates the terms against the borrowing customer and stores
// the loan with its collateral.
func (uc *LoanUseCase) CreateLoan(ctx context.Context, input CreateLoanInput) (*domain.Loan, error) {
	if input.ShopID == "" {
		return nil, domain.ErrMissingShop
	}

	repaymentType, err := domain.ParseRepaymentType(input.RepaymentType)
	if err != nil {
		return nil, err
	}

	customer, err := uc.partyRepo.GetByID(ctx, input.ShopID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.IsDeleted() {
		return nil, domain.ErrPartyNotFound
	}
	if customer.EntityType != domain.EntityCustomer {
		return nil, fmt.Errorf("%w: borrower must be a customer", domain.ErrInvalidLoanTerms)
	}

	now := time.Now().UTC()
	start := uc.Today()
	if input.StartDate != nil {
		start = *input.StartDate
	}

	loanID := uc.idGen.Generate()
	loanNumber := strings.TrimSpace(input.LoanNumber)
	if loanNumber == "" {
		loanNumber = generateLoanNumber(loanID, start)
	}

	collateral := make([]domain.CollateralItem, len(input.Collateral))
	for i, item := range input.Collateral {
		item.ID = uc.idGen.Generate()
		collateral[i] = item
	}

	loan, err := domain.NewLoan(domain.LoanInput{
		ID:            loanID,
		ShopID:        input.ShopID,
		LoanNumber:    loanNumber,
		CustomerID:    customer.ID,
		Principal:     input.Principal,
		InterestRate:  input.InterestRate,
		RepaymentType: repaymentType,
		TenureMonths:  input.TenureMonths,
		StartDate:     start,
		EndDate:       input.EndDate,
		Notes:         input.Notes,
		Collateral:    collateral,
	}, now)
	if err != nil {
		uc.journal.rejected("create_loan", err)
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.loanRepo.Create(txCtx, tx, loan); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"loan_id":        loan.ID,
		"loan_number":    loan.LoanNumber,
		"customer_id":    loan.CustomerID,
		"principal":      loan.Principal.StringFixed(domain.MinorUnitPlaces),
		"interest_rate":  loan.InterestRate.String(),
		"repayment_type": string(loan.RepaymentType),
	}
	if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanCreated, payload, now); err != nil {
		return nil, err
	}
	if err := uc.journal.audit(ctx, tx, loan.ShopID, domain.AuditActionLoanCreate, domain.AggregateTypeLoan, loan.ID, nil, loan); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.LoansCreated.WithLabelValues(string(loan.RepaymentType)).Inc()
	}

	return loan, nil
}

// generateLoanNumber derives a readable number from the loan's ULID.
func generateLoanNumber(id string, start time.Time) string {
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("GL-%s-%s", start.Format("200601"), strings.ToUpper(suffix))
}

// GetLoan returns a loan with its collateral and payments.
func (uc *LoanUseCase) GetLoan(ctx context.Context, shopID, id string) (*domain.Loan, error) {
	return uc.loanRepo.GetByID(ctx, shopID, id)
}

// ListLoansInput represents input for listing loans.
type ListLoansInput struct {
	ShopID     string
	Status     string
	CustomerID string
	Limit      int
	Offset     int
}

// ListLoans returns the shop's loans.
func (uc *LoanUseCase) ListLoans(ctx context.Context, input ListLoansInput) ([]*domain.Loan, error) {
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	filter := domain.LoanFilter{
		CustomerID: input.CustomerID,
		Limit:      limit,
		Offset:     offset,
	}
	if input.Status != "" {
		status := domain.LoanStatus(strings.ToUpper(input.Status))
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidLoanStatus, input.Status)
		}
		filter.Status = status
	}

	return uc.loanRepo.List(ctx, input.ShopID, filter)
}

// GetSchedule returns the amortization schedule of an EMI loan.
func (uc *LoanUseCase) GetSchedule(ctx context.Context, shopID, id string) (*domain.Loan, domain.Schedule, error) {
	loan, err := uc.loanRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, domain.Schedule{}, err
	}

	schedule, err := domain.GenerateAmortizationSchedule(loan)
	if err != nil {
		return nil, domain.Schedule{}, err
	}
	return loan, schedule, nil
}

// GetReminder prepares the figures the messaging collaborator sends.
func (uc *LoanUseCase) GetReminder(ctx context.Context, shopID, id string) (domain.LoanReminder, error) {
	loan, err := uc.loanRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return domain.LoanReminder{}, err
	}
	if err := loan.EnsureOpen(); err != nil {
		return domain.LoanReminder{}, err
	}
	return loan.Reminder(uc.Today()), nil
}

// RecordPaymentInput represents a payment against a loan.
type RecordPaymentInput struct {
	ShopID        string
	LoanID        string
	Amount        decimal.Decimal
	PaymentType   string
	PaymentMethod string
	PaymentDate   *time.Time
	Notes         string
}

// PaymentReceipt is the stored payment with the loan figures after it.
type PaymentReceipt struct {
	Payment              *domain.Payment
	TotalAmountPaid      decimal.Decimal
	OutstandingPrincipal decimal.Decimal
	Status               domain.LoanStatus
}

// RecordPayment appends a payment and updates the cached total atomically.
func (uc *LoanUseCase) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentReceipt, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		uc.journal.rejected("record_payment", err)
		return nil, err
	}

	var receipt *PaymentReceipt
	err := uc.withLoanLock(ctx, input.LoanID, func(txCtx context.Context, tx Transaction, now time.Time) error {
		loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, input.ShopID, input.LoanID)
		if err != nil {
			return err
		}

		paymentDate := now.In(uc.location)
		if input.PaymentDate != nil {
			paymentDate = *input.PaymentDate
		}

		payment, err := loan.RecordPayment(domain.PaymentInput{
			ID:            uc.idGen.Generate(),
			Amount:        input.Amount,
			PaymentType:   domain.PaymentType(strings.ToLower(strings.TrimSpace(input.PaymentType))),
			PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentMethod))),
			PaymentDate:   paymentDate,
			Notes:         input.Notes,
		}, now)
		if err != nil {
			return err
		}

		if err := uc.paymentRepo.Create(txCtx, tx, payment); err != nil {
			return err
		}
		if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
			return err
		}

		event := domain.LoanPaymentEvent{
			LoanID:          loan.ID,
			PaymentID:       payment.ID,
			Amount:          payment.Amount.StringFixed(domain.MinorUnitPlaces),
			PaymentType:     string(payment.PaymentType),
			TotalAmountPaid: loan.TotalAmountPaid.StringFixed(domain.MinorUnitPlaces),
		}
		if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanPayment, domain.MarshalState(event), now); err != nil {
			return err
		}
		if err := uc.journal.audit(ctx, tx, loan.ShopID, domain.AuditActionLoanPayment, domain.AggregateTypeLoan, loan.ID, nil, payment); err != nil {
			return err
		}

		receipt = &PaymentReceipt{
			Payment:              payment,
			TotalAmountPaid:      loan.TotalAmountPaid,
			OutstandingPrincipal: loan.OutstandingPrincipal(),
			Status:               loan.Status,
		}
		return nil
	})
	if err != nil {
		uc.journal.rejected("record_payment", err)
		return nil, err
	}

	if m := uc.journal.metrics; m != nil {
		m.PaymentsRecorded.WithLabelValues(string(receipt.Payment.PaymentType)).Inc()
		m.PaymentAmount.Observe(receipt.Payment.Amount.InexactFloat64())
	}

	return receipt, nil
}

// CloseLoanInput represents a closure request.
type CloseLoanInput struct {
	ShopID              string
	LoanID              string
	SettlementAmount    *decimal.Decimal
	SettlementNotes     string
	CollateralConfirmed bool
}

// CloseLoan settles the loan once the return of collateral is confirmed.
func (uc *LoanUseCase) CloseLoan(ctx context.Context, input CloseLoanInput) (*domain.Loan, error) {
	if !input.CollateralConfirmed {
		uc.journal.rejected("close_loan", domain.ErrCollateralNotConfirmed)
		return nil, domain.ErrCollateralNotConfirmed
	}

	var closed *domain.Loan
	err := uc.withLoanLock(ctx, input.LoanID, func(txCtx context.Context, tx Transaction, now time.Time) error {
		loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, input.ShopID, input.LoanID)
		if err != nil {
			return err
		}

		before := *loan
		if err := loan.Close(domain.CloseInput{
			SettlementAmount:    input.SettlementAmount,
			SettlementNotes:     input.SettlementNotes,
			CollateralConfirmed: input.CollateralConfirmed,
		}, now); err != nil {
			return err
		}

		if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
			return err
		}

		payload := map[string]any{
			"loan_id":           loan.ID,
			"loan_number":       loan.LoanNumber,
			"settlement_amount": loan.SettlementAmount.StringFixed(domain.MinorUnitPlaces),
			"total_amount_paid": loan.TotalAmountPaid.StringFixed(domain.MinorUnitPlaces),
		}
		if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanClosed, payload, now); err != nil {
			return err
		}
		if err := uc.journal.audit(ctx, tx, loan.ShopID, domain.AuditActionLoanClose, domain.AggregateTypeLoan, loan.ID, before, loan); err != nil {
			return err
		}

		closed = loan
		return nil
	})
	if err != nil {
		uc.journal.rejected("close_loan", err)
		return nil, err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.LoansClosed.Inc()
	}

	return closed, nil
}

// withLoanLock runs fn inside a transaction while holding the loan's
// distributed lock. The transaction commits when fn returns nil.
func (uc *LoanUseCase) withLoanLock(ctx context.Context, loanID string, fn func(context.Context, Transaction, time.Time) error) error {
	if uc.locker != nil {
		token, err := uc.locker.Acquire(ctx, loanID, uc.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLoanLocked) && uc.journal.metrics != nil {
				uc.journal.metrics.LoanLockBusy.Inc()
			}
			return err
		}
		defer func() { _ = uc.locker.Release(context.WithoutCancel(ctx), loanID, token) }()
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, tx, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}
