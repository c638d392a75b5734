package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
)

// EMIQuoteInput describes a prospective EMI loan.
type EMIQuoteInput struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TenureMonths int
	StartDate    time.Time
}

// EMIQuote is the installment and repayment plan of a prospective loan.
type EMIQuote struct {
	EMI           decimal.Decimal
	TotalInterest decimal.Decimal
	TotalPayable  decimal.Decimal
	Schedule      []domain.Installment
}

// QuoteEMI runs the EMI engine without persisting anything. A zero start date
// means today in UTC.
func QuoteEMI(input EMIQuoteInput) (*EMIQuote, error) {
	start := input.StartDate
	if start.IsZero() {
		start = time.Now()
	}

	schedule, err := domain.GenerateAmortizationSchedule(&domain.Loan{
		Principal:     input.Principal,
		InterestRate:  input.InterestRate,
		RepaymentType: domain.RepaymentEMI,
		TenureMonths:  input.TenureMonths,
		StartDate:     domain.DateOnly(start),
	})
	if err != nil {
		return nil, err
	}

	return &EMIQuote{
		EMI:           schedule.EMI(),
		TotalInterest: schedule.TotalInterest(),
		TotalPayable:  schedule.TotalPayable(),
		Schedule:      schedule.Rows(),
	}, nil
}

// InterestQuoteInput describes an interest-only loan. StartDate and Today
// are optional; without StartDate no due date is computed.
type InterestQuoteInput struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	StartDate    time.Time
	Today        time.Time
}

// InterestQuote is the monthly simple interest and, when a start date is
// known, the next date it falls due.
type InterestQuote struct {
	MonthlyInterest decimal.Decimal
	NextDueDate     *time.Time
}

// QuoteInterest runs the simple interest engine without persisting anything.
func QuoteInterest(input InterestQuoteInput) (*InterestQuote, error) {
	if input.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: principal must be positive", domain.ErrInvalidLoanTerms)
	}
	if input.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", domain.ErrInvalidLoanTerms)
	}

	quote := &InterestQuote{
		MonthlyInterest: domain.MonthlyInterest(input.Principal, input.InterestRate),
	}

	if !input.StartDate.IsZero() {
		today := input.Today
		if today.IsZero() {
			today = time.Now()
		}
		due := domain.NextDueDate(domain.DateOnly(input.StartDate), domain.DateOnly(today))
		quote.NextDueDate = &due
	}
	return quote, nil
}
