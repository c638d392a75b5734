package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ratePrecision is the number of decimal places kept for intermediate rate
// arithmetic before the final rounding to paise.
const ratePrecision = 28

var monthsPerYearPercent = decimal.NewFromInt(1200)

// MonthlyInterest returns one month of simple interest on principal at the
// annual percentage rate. It is always computed from principal, never from a
// previous interest figure.
func MonthlyInterest(principal, annualRatePercent decimal.Decimal) decimal.Decimal {
	return RoundMoney(principal.Mul(annualRatePercent).DivRound(monthsPerYearPercent, ratePrecision))
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsPerYearPercent, ratePrecision)
}

// NextDueDate returns the next date on or after today that falls on start's
// day-of-month. When that day does not exist in the target month the last day
// of the month is used.
func NextDueDate(start, today time.Time) time.Time {
	today = DateOnly(today)
	day := start.Day()

	due := dayInMonth(today.Year(), today.Month(), 0, day, today.Location())
	if due.Before(today) {
		due = dayInMonth(today.Year(), today.Month(), 1, day, today.Location())
	}
	return due
}

// EMIExact returns the unrounded equated monthly installment.
func EMIExact(principal, annualRatePercent decimal.Decimal, months int) (decimal.Decimal, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: principal must be positive", ErrInvalidLoanTerms)
	}
	if annualRatePercent.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: EMI requires a positive interest rate", ErrInvalidLoanTerms)
	}
	if months <= 0 {
		return decimal.Zero, fmt.Errorf("%w: EMI requires a positive tenure", ErrInvalidLoanTerms)
	}

	r := MonthlyRate(annualRatePercent)
	growth := powRounded(decimal.NewFromInt(1).Add(r), months)

	numerator := principal.Mul(r).Mul(growth)
	denominator := growth.Sub(decimal.NewFromInt(1))
	return numerator.DivRound(denominator, ratePrecision), nil
}

// EMIAmount returns the equated monthly installment rounded to paise.
func EMIAmount(principal, annualRatePercent decimal.Decimal, months int) (decimal.Decimal, error) {
	emi, err := EMIExact(principal, annualRatePercent, months)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundMoney(emi), nil
}

func powRounded(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for range n {
		result = result.Mul(base).Round(ratePrecision)
	}
	return result
}
