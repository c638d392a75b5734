package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentType is how a loan is paid back.
type RepaymentType string

const (
	RepaymentInterestOnly RepaymentType = "INTEREST_ONLY"
	RepaymentEMI          RepaymentType = "EMI"
	RepaymentBullet       RepaymentType = "BULLET"
)

// IsValid reports whether the repayment type is known.
func (r RepaymentType) IsValid() bool {
	switch r {
	case RepaymentInterestOnly, RepaymentEMI, RepaymentBullet:
		return true
	}
	return false
}

// ParseRepaymentType normalizes and validates a repayment type.
func ParseRepaymentType(s string) (RepaymentType, error) {
	r := RepaymentType(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrInvalidRepaymentType
	}
	return r, nil
}

// HasMonthlyDues reports whether the loan expects a payment every month.
func (r RepaymentType) HasMonthlyDues() bool {
	return r == RepaymentInterestOnly || r == RepaymentEMI
}

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanOverdue  LoanStatus = "OVERDUE"
	LoanClosed   LoanStatus = "CLOSED"
	LoanRejected LoanStatus = "REJECTED"
)

// IsValid reports whether the status is known.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanActive, LoanOverdue, LoanClosed, LoanRejected:
		return true
	}
	return false
}

// IsOpen reports whether the loan still accepts payments and closure.
func (s LoanStatus) IsOpen() bool {
	return s == LoanActive || s == LoanOverdue
}

// PaymentType is what a loan payment is applied to.
type PaymentType string

const (
	PaymentPrincipal      PaymentType = "principal"
	PaymentInterest       PaymentType = "interest"
	PaymentFullSettlement PaymentType = "full_settlement"
)

// IsValid reports whether the payment type is known.
func (p PaymentType) IsValid() bool {
	switch p {
	case PaymentPrincipal, PaymentInterest, PaymentFullSettlement:
		return true
	}
	return false
}

// PaymentMethod is how the money was received.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
	MethodCard         PaymentMethod = "card"
	MethodOther        PaymentMethod = "other"
)

// IsValid reports whether the payment method is known.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodUPI, MethodBankTransfer, MethodCheque, MethodCard, MethodOther:
		return true
	}
	return false
}

// CollateralItem is a pledged article held by the shop until the loan closes.
type CollateralItem struct {
	ID             string
	LoanID         string
	Name           string
	MaterialType   string
	Purity         string
	GrossWeight    decimal.Decimal
	NetWeight      decimal.Decimal
	EstimatedValue decimal.Decimal
	CreatedAt      time.Time
}

// Validate checks the collateral attributes.
func (c *CollateralItem) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCollateral)
	}
	if c.GrossWeight.IsNegative() || c.NetWeight.IsNegative() {
		return fmt.Errorf("%w: weights cannot be negative", ErrInvalidCollateral)
	}
	if c.NetWeight.GreaterThan(c.GrossWeight) {
		return fmt.Errorf("%w: net weight exceeds gross weight", ErrInvalidCollateral)
	}
	if c.EstimatedValue.IsNegative() {
		return fmt.Errorf("%w: estimated value cannot be negative", ErrInvalidCollateral)
	}
	return nil
}

// Payment is an immutable record of money received against a loan.
type Payment struct {
	ID            string
	LoanID        string
	Amount        decimal.Decimal
	PaymentType   PaymentType
	PaymentMethod PaymentMethod
	PaymentDate   time.Time
	Notes         string
	CreatedAt     time.Time
}

// Loan is a collateral-backed credit extended to a customer.
type Loan struct {
	ID                 string
	ShopID             string
	LoanNumber         string
	CustomerID         string
	Principal          decimal.Decimal
	InterestRate       decimal.Decimal // annual percent
	RepaymentType      RepaymentType
	TenureMonths       int
	EMIAmount          decimal.Decimal
	StartDate          time.Time
	EndDate            *time.Time
	Status             LoanStatus
	TotalAmountPaid    decimal.Decimal
	SettlementAmount   *decimal.Decimal
	SettlementNotes    string
	CollateralReturned bool
	ClosedAt           *time.Time
	Notes              string
	Collateral         []CollateralItem
	Payments           []Payment
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LoanInput carries the terms of a new loan.
type LoanInput struct {
	ID            string
	ShopID        string
	LoanNumber    string
	CustomerID    string
	Principal     decimal.Decimal
	InterestRate  decimal.Decimal
	RepaymentType RepaymentType
	TenureMonths  int
	StartDate     time.Time
	EndDate       *time.Time
	Notes         string
	Collateral    []CollateralItem
}

// NewLoan validates the terms and returns an ACTIVE loan with its EMI and
// end date filled in.
func NewLoan(in LoanInput, now time.Time) (*Loan, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidLoanTerms)
	}
	if err := ValidateLoanNumber(in.LoanNumber); err != nil {
		return nil, err
	}
	if err := ValidateAmount(in.Principal); err != nil {
		return nil, err
	}
	if in.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrInvalidLoanTerms)
	}
	if !in.RepaymentType.IsValid() {
		return nil, ErrInvalidRepaymentType
	}
	if in.TenureMonths < 0 {
		return nil, fmt.Errorf("%w: tenure cannot be negative", ErrInvalidLoanTerms)
	}
	if in.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidLoanTerms)
	}
	if err := ValidateNotes(in.Notes); err != nil {
		return nil, err
	}

	if len(in.Collateral) == 0 {
		return nil, fmt.Errorf("%w: at least one item must be pledged", ErrInvalidCollateral)
	}
	collateral := make([]CollateralItem, len(in.Collateral))
	for i, item := range in.Collateral {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		item.LoanID = in.ID
		item.CreatedAt = now
		collateral[i] = item
	}

	loan := &Loan{
		ID:              in.ID,
		ShopID:          in.ShopID,
		LoanNumber:      in.LoanNumber,
		CustomerID:      in.CustomerID,
		Principal:       in.Principal,
		InterestRate:    in.InterestRate,
		RepaymentType:   in.RepaymentType,
		TenureMonths:    in.TenureMonths,
		EMIAmount:       decimal.Zero,
		StartDate:       DateOnly(in.StartDate),
		Status:          LoanActive,
		TotalAmountPaid: decimal.Zero,
		Notes:           strings.TrimSpace(in.Notes),
		Collateral:      collateral,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	switch in.RepaymentType {
	case RepaymentEMI:
		emi, err := EMIAmount(in.Principal, in.InterestRate, in.TenureMonths)
		if err != nil {
			return nil, err
		}
		loan.EMIAmount = emi
	case RepaymentBullet:
		if in.TenureMonths == 0 {
			return nil, fmt.Errorf("%w: bullet repayment requires a tenure", ErrInvalidLoanTerms)
		}
	}

	switch {
	case in.TenureMonths > 0:
		end := AddMonthsClamped(loan.StartDate, in.TenureMonths)
		loan.EndDate = &end
	case in.EndDate != nil:
		end := DateOnly(*in.EndDate)
		if !end.After(loan.StartDate) {
			return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidLoanTerms)
		}
		loan.EndDate = &end
	}

	return loan, nil
}

// EnsureOpen fails unless the loan still accepts payments and closure.
func (l *Loan) EnsureOpen() error {
	if !l.Status.IsOpen() {
		return fmt.Errorf("%w: loan is %s", ErrInvalidStateTransition, l.Status)
	}
	return nil
}

// PaymentInput carries a payment to record against a loan.
type PaymentInput struct {
	ID            string
	Amount        decimal.Decimal
	PaymentType   PaymentType
	PaymentMethod PaymentMethod
	PaymentDate   time.Time
	Notes         string
}

// RecordPayment appends a payment and updates the cached total in one step.
// Amounts above the outstanding principal are accepted.
func (l *Loan) RecordPayment(in PaymentInput, now time.Time) (*Payment, error) {
	if err := l.EnsureOpen(); err != nil {
		return nil, err
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if !in.PaymentType.IsValid() {
		return nil, ErrInvalidPaymentType
	}

	method := in.PaymentMethod
	if method == "" {
		method = MethodCash
	}
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}
	if err := ValidateNotes(in.Notes); err != nil {
		return nil, err
	}

	date := in.PaymentDate
	if date.IsZero() {
		date = now
	}

	payment := Payment{
		ID:            in.ID,
		LoanID:        l.ID,
		Amount:        in.Amount,
		PaymentType:   in.PaymentType,
		PaymentMethod: method,
		PaymentDate:   DateOnly(date),
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     now,
	}

	l.Payments = append(l.Payments, payment)
	l.TotalAmountPaid = l.TotalAmountPaid.Add(in.Amount)
	l.UpdatedAt = now

	return &payment, nil
}

// CloseInput carries the closure request.
type CloseInput struct {
	SettlementAmount    *decimal.Decimal
	SettlementNotes     string
	CollateralConfirmed bool
}

// Close settles the loan. Collateral confirmation is checked before anything
// else.
func (l *Loan) Close(in CloseInput, now time.Time) error {
	if !in.CollateralConfirmed {
		return ErrCollateralNotConfirmed
	}
	if err := l.EnsureOpen(); err != nil {
		return err
	}

	settlement := l.TotalAmountPaid
	if in.SettlementAmount != nil {
		settlement = *in.SettlementAmount
	}
	if settlement.IsNegative() || !settlement.Equal(RoundMoney(settlement)) {
		return fmt.Errorf("%w: invalid settlement amount", ErrInvalidAmount)
	}
	if err := ValidateNotes(in.SettlementNotes); err != nil {
		return err
	}

	l.Status = LoanClosed
	l.SettlementAmount = &settlement
	l.SettlementNotes = strings.TrimSpace(in.SettlementNotes)
	l.CollateralReturned = true
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// OutstandingPrincipal is principal minus everything paid, never below zero.
func (l *Loan) OutstandingPrincipal() decimal.Decimal {
	return decimal.Max(l.Principal.Sub(l.TotalAmountPaid), decimal.Zero)
}

// MonthlyInterest is one month of simple interest on the principal.
func (l *Loan) MonthlyInterest() decimal.Decimal {
	return MonthlyInterest(l.Principal, l.InterestRate)
}

// BulletAmount is the principal plus simple interest over the tenure.
func (l *Loan) BulletAmount() decimal.Decimal {
	months := decimal.NewFromInt(int64(l.TenureMonths))
	return RoundMoney(l.Principal.Add(l.MonthlyInterest().Mul(months)))
}

// NextDueDate returns the next installment date, or the end date for a
// bullet loan.
func (l *Loan) NextDueDate(today time.Time) time.Time {
	if l.RepaymentType == RepaymentBullet && l.EndDate != nil {
		return *l.EndDate
	}
	return NextDueDate(l.StartDate, today)
}

// DerivedStatus computes whether an open loan is overdue as of today. An
// open loan is overdue when it is past its end date with principal
// outstanding, or when a monthly due date has passed with no payment since
// the due date before it. Closed and rejected loans are returned unchanged.
func (l *Loan) DerivedStatus(today time.Time) LoanStatus {
	if !l.Status.IsOpen() {
		return l.Status
	}
	today = DateOnly(today)

	if l.EndDate != nil && today.After(*l.EndDate) && l.OutstandingPrincipal().IsPositive() {
		return LoanOverdue
	}

	if !l.RepaymentType.HasMonthlyDues() {
		return LoanActive
	}

	start := DateOnly(l.StartDate)
	k := (today.Year()-start.Year())*12 + int(today.Month()-start.Month())
	if !l.dueDate(k).Before(today) {
		k--
	}
	if k < 1 {
		return LoanActive
	}
	if l.EndDate != nil && l.dueDate(k).After(*l.EndDate) {
		return LoanActive
	}

	periodStart := start
	if k > 1 {
		periodStart = l.dueDate(k - 1)
	}
	for _, p := range l.Payments {
		if DateOnly(p.PaymentDate).After(periodStart) {
			return LoanActive
		}
	}
	return LoanOverdue
}

func (l *Loan) dueDate(n int) time.Time {
	start := DateOnly(l.StartDate)
	return dayInMonth(start.Year(), start.Month(), n, start.Day(), start.Location())
}

// LoanReminder is what the messaging collaborator needs to remind a customer.
type LoanReminder struct {
	LoanID               string
	LoanNumber           string
	CustomerID           string
	RepaymentType        RepaymentType
	MonthlyInterest      decimal.Decimal
	EMIAmount            decimal.Decimal
	AmountDue            decimal.Decimal
	OutstandingPrincipal decimal.Decimal
	NextDueDate          time.Time
}

// Reminder prepares the amounts and date of the next payment.
func (l *Loan) Reminder(today time.Time) LoanReminder {
	r := LoanReminder{
		LoanID:               l.ID,
		LoanNumber:           l.LoanNumber,
		CustomerID:           l.CustomerID,
		RepaymentType:        l.RepaymentType,
		MonthlyInterest:      l.MonthlyInterest(),
		EMIAmount:            l.EMIAmount,
		OutstandingPrincipal: l.OutstandingPrincipal(),
		NextDueDate:          l.NextDueDate(today),
	}

	switch l.RepaymentType {
	case RepaymentEMI:
		r.AmountDue = l.EMIAmount
	case RepaymentBullet:
		r.AmountDue = decimal.Max(l.BulletAmount().Sub(l.TotalAmountPaid), decimal.Zero)
	default:
		r.AmountDue = r.MonthlyInterest
	}
	return r
}

// LoanFilter narrows a loan listing.
type LoanFilter struct {
	Status     LoanStatus
	CustomerID string
	Limit      int
	Offset     int
}
