package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/khata/internal/domain"
)

// SweepResult summarizes one pass of a background loan job.
type SweepResult struct {
	Scanned int
	Changed int
	Overdue int
	Failed  int
}

// RefreshOverdue persists the derived ACTIVE/OVERDUE status of every open
// loan as of today. Payments never move a loan between these states; only
// this sweep does.
func (uc *LoanUseCase) RefreshOverdue(ctx context.Context, today time.Time) (SweepResult, error) {
	var result SweepResult

	err := uc.eachOpenLoan(ctx, func(loan *domain.Loan) {
		result.Scanned++
		derived := loan.DerivedStatus(today)
		if derived == domain.LoanOverdue {
			result.Overdue++
		}
		if derived == loan.Status {
			return
		}

		changed, err := uc.applyDerivedStatus(ctx, loan.ShopID, loan.ID, today)
		switch {
		case err != nil:
			result.Failed++
		case changed:
			result.Changed++
		}
	})
	if err != nil {
		return result, err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.OverdueLoans.Set(float64(result.Overdue))
	}

	return result, nil
}

// applyDerivedStatus re-derives the status from locked state so a payment
// recorded since the scan is taken into account.
func (uc *LoanUseCase) applyDerivedStatus(ctx context.Context, shopID, loanID string, today time.Time) (bool, error) {
	changed := false
	err := uc.withLoanLock(ctx, loanID, func(txCtx context.Context, tx Transaction, now time.Time) error {
		loan, err := uc.loanRepo.GetByIDForUpdate(txCtx, tx, shopID, loanID)
		if err != nil {
			return err
		}

		from := loan.Status
		to := loan.DerivedStatus(today)
		if from == to {
			return nil
		}

		loan.Status = to
		loan.UpdatedAt = now
		if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
			return err
		}

		payload := map[string]any{
			"loan_id":     loan.ID,
			"loan_number": loan.LoanNumber,
			"from":        string(from),
			"to":          string(to),
			"as_of":       today.Format(time.DateOnly),
		}
		if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeLoan, loan.ID, domain.EventTypeLoanStatusChanged, payload, now); err != nil {
			return err
		}
		if err := uc.journal.audit(ctx, tx, loan.ShopID, domain.AuditActionLoanOverdue, domain.AggregateTypeLoan, loan.ID, map[string]any{"status": from}, map[string]any{"status": to}); err != nil {
			return err
		}

		if uc.journal.metrics != nil {
			uc.journal.metrics.LoanStatusMoves.WithLabelValues(string(from), string(to)).Inc()
		}
		changed = true
		return nil
	})
	return changed, err
}

// DueReminders queues a loan.reminder_due event for every open loan whose
// next due date is exactly leadDays after today, so each due date is
// reminded once per daily run.
func (uc *LoanUseCase) DueReminders(ctx context.Context, today time.Time, leadDays int) (SweepResult, error) {
	var result SweepResult
	today = domain.DateOnly(today)
	target := today.AddDate(0, 0, leadDays)

	var due []domain.LoanReminder
	err := uc.eachOpenLoan(ctx, func(loan *domain.Loan) {
		result.Scanned++
		reminder := loan.Reminder(today)
		if reminder.NextDueDate.Equal(target) {
			due = append(due, reminder)
		}
	})
	if err != nil {
		return result, err
	}
	if len(due) == 0 {
		return result, nil
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return result, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	for _, reminder := range due {
		event := domain.NewReminderEvent(reminder)
		if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeLoan, reminder.LoanID, domain.EventTypeLoanReminderDue, domain.MarshalState(event), now); err != nil {
			return result, err
		}
		result.Changed++
	}

	if err := tx.Commit(txCtx); err != nil {
		return SweepResult{Scanned: result.Scanned}, err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.RemindersQueued.Add(float64(result.Changed))
	}

	return result, nil
}

func (uc *LoanUseCase) eachOpenLoan(ctx context.Context, fn func(*domain.Loan)) error {
	for offset := 0; ; offset += sweepPageSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		loans, err := uc.loanRepo.ListOpen(ctx, sweepPageSize, offset)
		if err != nil {
			return err
		}

		for _, loan := range loans {
			fn(loan)
		}

		if len(loans) < sweepPageSize {
			return nil
		}
	}
}

// IsBusy reports whether err means the loan is being modified elsewhere and
// the operation can be retried later.
func IsBusy(err error) bool {
	return errors.Is(err, domain.ErrLoanLocked) || errors.Is(err, domain.ErrConcurrentModification)
}
