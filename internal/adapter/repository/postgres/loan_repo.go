package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

const loanNumberConstraint = "loans_shop_loan_number_key"

const loanColumns = `id, shop_id, loan_number, customer_id, principal, interest_rate, repayment_type, tenure_months,
	emi_amount, start_date, end_date, status, total_amount_paid, settlement_amount, settlement_notes,
	collateral_returned, closed_at, notes, version, created_at, updated_at`

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	db       DBTX
	payments *PaymentRepository
	retrier  *Retrier
}

// NewLoanRepository creates a new LoanRepository. retrier may be nil.
func NewLoanRepository(db DBTX, retrier *Retrier) *LoanRepository {
	return &LoanRepository{
		db:       db,
		payments: NewPaymentRepository(),
		retrier:  retrier,
	}
}

// Create inserts a loan together with its collateral items.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO loans (id, shop_id, loan_number, customer_id, principal, interest_rate, repayment_type, tenure_months,
			emi_amount, start_date, end_date, status, total_amount_paid, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		loan.ID,
		loan.ShopID,
		loan.LoanNumber,
		loan.CustomerID,
		decimalToNumeric(loan.Principal),
		decimalToNumeric(loan.InterestRate),
		string(loan.RepaymentType),
		loan.TenureMonths,
		decimalToNumeric(loan.EMIAmount),
		timeToPgDate(loan.StartDate),
		optionalDate(loan.EndDate),
		string(loan.Status),
		decimalToNumeric(loan.TotalAmountPaid),
		loan.Notes,
		loan.Version,
		timeToPgTimestamptz(loan.CreatedAt),
		timeToPgTimestamptz(loan.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, loanNumberConstraint) {
			return domain.ErrDuplicateLoanNumber
		}
		return err
	}

	for _, item := range loan.Collateral {
		_, err := q.Exec(ctx, `
			INSERT INTO collateral_items (id, loan_id, name, material_type, purity, gross_weight, net_weight, estimated_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID,
			loan.ID,
			item.Name,
			item.MaterialType,
			item.Purity,
			decimalToNumeric(item.GrossWeight),
			decimalToNumeric(item.NetWeight),
			decimalToNumeric(item.EstimatedValue),
			timeToPgTimestamptz(item.CreatedAt),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a loan of the shop with its collateral and payments.
func (r *LoanRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := r.retrier.Retry(ctx, func() error {
		var err error
		loan, err = scanLoan(r.db.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE shop_id = $1 AND id = $2`, shopID, id))
		if err != nil {
			return err
		}
		return r.hydrate(ctx, r.db, loan)
	})
	return loan, err
}

// GetByIDForUpdate retrieves a loan with a FOR UPDATE lock, fully hydrated.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Loan, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	loan, err := scanLoan(q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE shop_id = $1 AND id = $2 FOR UPDATE`, shopID, id))
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, q, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// List returns the shop's loans, newest first. Collateral and payments are
// not loaded.
func (r *LoanRepository) List(ctx context.Context, shopID string, filter domain.LoanFilter) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE shop_id = $1`
	args := []any{shopID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += ` AND customer_id = $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var loans []*domain.Loan
	err := r.retrier.Retry(ctx, func() error {
		var err error
		loans, err = r.queryLoans(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// ListOpen returns ACTIVE and OVERDUE loans across shops ordered by id, with
// their payments loaded for status derivation.
func (r *LoanRepository) ListOpen(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	err := r.retrier.Retry(ctx, func() error {
		var err error
		loans, err = r.queryLoans(ctx, `
			SELECT `+loanColumns+`
			FROM loans
			WHERE status IN ('ACTIVE', 'OVERDUE')
			ORDER BY id
			LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}

		for _, loan := range loans {
			payments, err := r.payments.listByLoan(ctx, r.db, loan.ID)
			if err != nil {
				return err
			}
			loan.Payments = payments
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// Update persists the mutable loan fields guarded by the version column.
func (r *LoanRepository) Update(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE loans
		SET status = $3,
		    total_amount_paid = $4,
		    settlement_amount = $5,
		    settlement_notes = $6,
		    collateral_returned = $7,
		    closed_at = $8,
		    updated_at = $9,
		    version = version + 1
		WHERE id = $1 AND version = $2`,
		loan.ID,
		loan.Version,
		string(loan.Status),
		decimalToNumeric(loan.TotalAmountPaid),
		optionalDecimal(loan.SettlementAmount),
		loan.SettlementNotes,
		loan.CollateralReturned,
		optionalTimestamptz(loan.ClosedAt),
		timeToPgTimestamptz(loan.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}

	loan.Version++
	return nil
}

func (r *LoanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]*domain.Loan, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

func (r *LoanRepository) hydrate(ctx context.Context, q DBTX, loan *domain.Loan) error {
	rows, err := q.Query(ctx, `
		SELECT id, loan_id, name, material_type, purity, gross_weight, net_weight, estimated_value, created_at
		FROM collateral_items
		WHERE loan_id = $1
		ORDER BY created_at, id`, loan.ID)
	if err != nil {
		return err
	}

	for rows.Next() {
		var (
			item                  domain.CollateralItem
			gross, net, estimated pgtype.Numeric
			createdAt             pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.LoanID, &item.Name, &item.MaterialType, &item.Purity,
			&gross, &net, &estimated, &createdAt); err != nil {
			rows.Close()
			return err
		}
		item.GrossWeight = numericToDecimal(gross)
		item.NetWeight = numericToDecimal(net)
		item.EstimatedValue = numericToDecimal(estimated)
		item.CreatedAt = createdAt.Time
		loan.Collateral = append(loan.Collateral, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	payments, err := r.payments.listByLoan(ctx, q, loan.ID)
	if err != nil {
		return err
	}
	loan.Payments = payments
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		l                domain.Loan
		principal        pgtype.Numeric
		rate             pgtype.Numeric
		repaymentType    string
		tenure           int32
		emi              pgtype.Numeric
		startDate        pgtype.Date
		endDate          pgtype.Date
		status           string
		totalPaid        pgtype.Numeric
		settlementAmount pgtype.Numeric
		closedAt         pgtype.Timestamptz
		createdAt        pgtype.Timestamptz
		updatedAt        pgtype.Timestamptz
	)

	err := row.Scan(&l.ID, &l.ShopID, &l.LoanNumber, &l.CustomerID, &principal, &rate, &repaymentType, &tenure,
		&emi, &startDate, &endDate, &status, &totalPaid, &settlementAmount, &l.SettlementNotes,
		&l.CollateralReturned, &closedAt, &l.Notes, &l.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}

	l.Principal = numericToDecimal(principal)
	l.InterestRate = numericToDecimal(rate)
	l.RepaymentType = domain.RepaymentType(repaymentType)
	l.TenureMonths = int(tenure)
	l.EMIAmount = numericToDecimal(emi)
	l.StartDate = startDate.Time
	l.EndDate = dateToOptional(endDate)
	l.Status = domain.LoanStatus(status)
	l.TotalAmountPaid = numericToDecimal(totalPaid)
	l.SettlementAmount = numericToOptionalDecimal(settlementAmount)
	l.ClosedAt = timestamptzToOptional(closedAt)
	l.CreatedAt = createdAt.Time
	l.UpdatedAt = updatedAt.Time
	return &l, nil
}
