package domain

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one row of an amortization schedule. Amounts are rounded to
// paise; Total is the rounded EMI on every row.
type Installment struct {
	Number    int
	DueDate   time.Time
	Total     decimal.Decimal
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Balance   decimal.Decimal
}

// Schedule is the amortization plan of an EMI loan. It holds only the loan
// terms; rows are recomputed on every iteration.
type Schedule struct {
	principal decimal.Decimal
	rate      decimal.Decimal
	months    int
	start     time.Time
	emi       decimal.Decimal
}

// GenerateAmortizationSchedule builds the schedule of an EMI loan. Interest
// for each period is the opening balance times the monthly rate
// (annual / 12 / 100), the same rate EMIAmount uses.
func GenerateAmortizationSchedule(loan *Loan) (Schedule, error) {
	if loan.RepaymentType != RepaymentEMI {
		return Schedule{}, fmt.Errorf("%w: schedule is only available for EMI loans", ErrInvalidLoanTerms)
	}

	emi, err := EMIExact(loan.Principal, loan.InterestRate, loan.TenureMonths)
	if err != nil {
		return Schedule{}, err
	}

	return Schedule{
		principal: loan.Principal,
		rate:      loan.InterestRate,
		months:    loan.TenureMonths,
		start:     DateOnly(loan.StartDate),
		emi:       emi,
	}, nil
}

// EMI returns the rounded installment shown in the Total column.
func (s Schedule) EMI() decimal.Decimal {
	return RoundMoney(s.emi)
}

// Len returns the number of installments.
func (s Schedule) Len() int {
	return s.months
}

// All yields the installments in order.
func (s Schedule) All() iter.Seq[Installment] {
	return func(yield func(Installment) bool) {
		r := MonthlyRate(s.rate)
		total := RoundMoney(s.emi)
		balance := s.principal

		for n := 1; n <= s.months; n++ {
			interest := balance.Mul(r).Round(ratePrecision)
			principal := s.emi.Sub(interest)
			balance = balance.Sub(principal)
			if n == s.months || balance.IsNegative() {
				balance = decimal.Max(balance, decimal.Zero)
			}

			row := Installment{
				Number:    n,
				DueDate:   dayInMonth(s.start.Year(), s.start.Month(), n, s.start.Day(), s.start.Location()),
				Total:     total,
				Principal: RoundMoney(principal),
				Interest:  RoundMoney(interest),
				Balance:   RoundMoney(balance),
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Rows collects the full schedule.
func (s Schedule) Rows() []Installment {
	return slices.Collect(s.All())
}

// TotalInterest is the interest paid over the life of the loan at the
// rounded EMI.
func (s Schedule) TotalInterest() decimal.Decimal {
	return s.TotalPayable().Sub(s.principal)
}

// TotalPayable is the rounded EMI times the number of installments.
func (s Schedule) TotalPayable() decimal.Decimal {
	return RoundMoney(s.emi).Mul(decimal.NewFromInt(int64(s.months)))
}
