package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// PaymentRepository implements usecase.PaymentRepository. Payments only
// change inside a loan transaction, so it holds no pool of its own.
type PaymentRepository struct{}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

// Create inserts a loan payment.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO loan_payments (id, loan_id, amount, payment_type, payment_method, payment_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		payment.ID,
		payment.LoanID,
		decimalToNumeric(payment.Amount),
		string(payment.PaymentType),
		string(payment.PaymentMethod),
		timeToPgDate(payment.PaymentDate),
		payment.Notes,
		timeToPgTimestamptz(payment.CreatedAt),
	)
	return err
}

func (r *PaymentRepository) listByLoan(ctx context.Context, q DBTX, loanID string) ([]domain.Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, loan_id, amount, payment_type, payment_method, payment_date, notes, created_at
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY payment_date, created_at, id`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var (
			p           domain.Payment
			amount      pgtype.Numeric
			paymentType string
			method      string
			paymentDate pgtype.Date
			createdAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&p.ID, &p.LoanID, &amount, &paymentType, &method, &paymentDate, &p.Notes, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = numericToDecimal(amount)
		p.PaymentType = domain.PaymentType(paymentType)
		p.PaymentMethod = domain.PaymentMethod(method)
		p.PaymentDate = paymentDate.Time
		p.CreatedAt = createdAt.Time
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
