package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loanNow = time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC)

func goldChain() CollateralItem {
	return CollateralItem{
		Name:           "Gold chain",
		MaterialType:   "gold",
		Purity:         "22K",
		GrossWeight:    d("25.400"),
		NetWeight:      d("24.100"),
		EstimatedValue: d("120000"),
	}
}

func loanInput(rt RepaymentType) LoanInput {
	return LoanInput{
		ID:            "loan-1",
		ShopID:        "shop-1",
		LoanNumber:    "GL-001",
		CustomerID:    "party-1",
		Principal:     d("100000"),
		InterestRate:  d("24"),
		RepaymentType: rt,
		TenureMonths:  12,
		StartDate:     date(2024, 1, 31),
		Collateral:    []CollateralItem{goldChain()},
	}
}

func activeLoan(t *testing.T) *Loan {
	t.Helper()
	loan, err := NewLoan(loanInput(RepaymentInterestOnly), loanNow)
	require.NoError(t, err)
	return loan
}

func TestNewLoan(t *testing.T) {
	loan, err := NewLoan(loanInput(RepaymentEMI), loanNow)
	require.NoError(t, err)

	assert.Equal(t, LoanActive, loan.Status)
	assert.True(t, loan.TotalAmountPaid.IsZero())
	require.NotNil(t, loan.EndDate)
	assert.Equal(t, date(2025, 1, 31), *loan.EndDate)
	expected, err := EMIAmount(d("100000"), d("24"), 12)
	require.NoError(t, err)
	assert.True(t, loan.EMIAmount.Equal(expected))
	require.Len(t, loan.Collateral, 1)
	assert.Equal(t, "loan-1", loan.Collateral[0].LoanID)
	assert.Equal(t, int64(1), loan.Version)
}

func TestNewLoan_InterestOnlyWithoutTenure(t *testing.T) {
	in := loanInput(RepaymentInterestOnly)
	in.TenureMonths = 0
	loan, err := NewLoan(in, loanNow)
	require.NoError(t, err)
	assert.Nil(t, loan.EndDate)
	assert.True(t, loan.EMIAmount.IsZero())
}

func TestNewLoan_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LoanInput)
		want   error
	}{
		{"zero principal", func(in *LoanInput) { in.Principal = decimal.Zero }, ErrInvalidAmount},
		{"negative rate", func(in *LoanInput) { in.InterestRate = d("-1") }, ErrInvalidLoanTerms},
		{"emi without rate", func(in *LoanInput) { in.RepaymentType = RepaymentEMI; in.InterestRate = decimal.Zero }, ErrInvalidLoanTerms},
		{"emi without tenure", func(in *LoanInput) { in.RepaymentType = RepaymentEMI; in.TenureMonths = 0 }, ErrInvalidLoanTerms},
		{"bullet without tenure", func(in *LoanInput) { in.RepaymentType = RepaymentBullet; in.TenureMonths = 0 }, ErrInvalidLoanTerms},
		{"unknown repayment", func(in *LoanInput) { in.RepaymentType = "WEEKLY" }, ErrInvalidRepaymentType},
		{"missing customer", func(in *LoanInput) { in.CustomerID = "" }, ErrInvalidLoanTerms},
		{"missing start", func(in *LoanInput) { in.StartDate = time.Time{} }, ErrInvalidLoanTerms},
		{"bad loan number", func(in *LoanInput) { in.LoanNumber = "GL 001" }, ErrInvalidLoanNumber},
		{"no collateral", func(in *LoanInput) { in.Collateral = nil }, ErrInvalidCollateral},
		{"net above gross", func(in *LoanInput) { in.Collateral[0].NetWeight = d("30") }, ErrInvalidCollateral},
		{"end before start", func(in *LoanInput) {
			in.TenureMonths = 0
			end := date(2024, 1, 1)
			in.EndDate = &end
		}, ErrInvalidLoanTerms},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := loanInput(RepaymentInterestOnly)
			in.Collateral = []CollateralItem{goldChain()}
			tt.mutate(&in)
			_, err := NewLoan(in, loanNow)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoan_RecordPayment(t *testing.T) {
	loan := activeLoan(t)

	payment, err := loan.RecordPayment(PaymentInput{
		ID:            "pay-1",
		Amount:        d("2000"),
		PaymentType:   PaymentInterest,
		PaymentMethod: MethodUPI,
		PaymentDate:   date(2024, 2, 29),
	}, loanNow)
	require.NoError(t, err)

	assert.Equal(t, "loan-1", payment.LoanID)
	assert.Equal(t, MethodUPI, payment.PaymentMethod)
	require.Len(t, loan.Payments, 1)
	assert.True(t, loan.TotalAmountPaid.Equal(d("2000")))

	_, err = loan.RecordPayment(PaymentInput{Amount: d("500"), PaymentType: PaymentPrincipal}, loanNow)
	require.NoError(t, err)
	assert.True(t, loan.TotalAmountPaid.Equal(d("2500")))
	assert.Equal(t, MethodCash, loan.Payments[1].PaymentMethod)
	assert.Equal(t, date(2024, 2, 1), loan.Payments[1].PaymentDate)
}

func TestLoan_RecordPayment_RejectsBadInputWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		input PaymentInput
		want  error
	}{
		{"zero", PaymentInput{Amount: decimal.Zero, PaymentType: PaymentPrincipal}, ErrInvalidAmount},
		{"negative", PaymentInput{Amount: d("-10"), PaymentType: PaymentPrincipal}, ErrInvalidAmount},
		{"sub paise", PaymentInput{Amount: d("10.001"), PaymentType: PaymentPrincipal}, ErrInvalidAmount},
		{"unknown type", PaymentInput{Amount: d("10"), PaymentType: "penalty"}, ErrInvalidPaymentType},
		{"unknown method", PaymentInput{Amount: d("10"), PaymentType: PaymentPrincipal, PaymentMethod: "crypto"}, ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := activeLoan(t)
			_, err := loan.RecordPayment(tt.input, loanNow)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, loan.Payments)
			assert.True(t, loan.TotalAmountPaid.IsZero())
		})
	}
}

func TestLoan_OverpaymentAccepted(t *testing.T) {
	loan := activeLoan(t)

	_, err := loan.RecordPayment(PaymentInput{Amount: d("150000"), PaymentType: PaymentFullSettlement}, loanNow)
	require.NoError(t, err)

	assert.True(t, loan.TotalAmountPaid.Equal(d("150000")))
	assert.True(t, loan.OutstandingPrincipal().IsZero())
	assert.Equal(t, LoanActive, loan.Status, "payments never change status")
}

func TestLoan_OutstandingPrincipal(t *testing.T) {
	loan := activeLoan(t)
	assert.True(t, loan.OutstandingPrincipal().Equal(d("100000")))

	loan.TotalAmountPaid = d("40000.50")
	assert.True(t, loan.OutstandingPrincipal().Equal(d("59999.50")))

	loan.TotalAmountPaid = d("100000.01")
	assert.False(t, loan.OutstandingPrincipal().IsNegative())
}

func TestLoan_Close(t *testing.T) {
	loan := activeLoan(t)
	_, err := loan.RecordPayment(PaymentInput{Amount: d("102000"), PaymentType: PaymentFullSettlement}, loanNow)
	require.NoError(t, err)

	require.NoError(t, loan.Close(CloseInput{SettlementNotes: "all items returned", CollateralConfirmed: true}, loanNow))

	assert.Equal(t, LoanClosed, loan.Status)
	require.NotNil(t, loan.SettlementAmount)
	assert.True(t, loan.SettlementAmount.Equal(d("102000")), "settlement defaults to total paid")
	assert.True(t, loan.CollateralReturned)
	require.NotNil(t, loan.ClosedAt)
}

func TestLoan_Close_ExplicitSettlement(t *testing.T) {
	loan := activeLoan(t)
	settlement := d("95000")

	require.NoError(t, loan.Close(CloseInput{SettlementAmount: &settlement, CollateralConfirmed: true}, loanNow))
	assert.True(t, loan.SettlementAmount.Equal(settlement))

	negative := d("-1")
	other := activeLoan(t)
	assert.ErrorIs(t, other.Close(CloseInput{SettlementAmount: &negative, CollateralConfirmed: true}, loanNow), ErrInvalidAmount)
	assert.Equal(t, LoanActive, other.Status)
}

func TestLoan_Close_RequiresCollateralConfirmation(t *testing.T) {
	settlement := d("1000")
	states := []LoanStatus{LoanActive, LoanOverdue, LoanClosed, LoanRejected}

	for _, status := range states {
		for _, in := range []CloseInput{
			{},
			{SettlementAmount: &settlement},
			{SettlementAmount: &settlement, SettlementNotes: "done"},
		} {
			loan := activeLoan(t)
			loan.Status = status
			err := loan.Close(in, loanNow)
			assert.ErrorIs(t, err, ErrCollateralNotConfirmed, "status %s", status)
			assert.Equal(t, status, loan.Status)
		}
	}
}

func TestLoan_ClosedIsTerminal(t *testing.T) {
	loan := activeLoan(t)
	require.NoError(t, loan.Close(CloseInput{CollateralConfirmed: true}, loanNow))

	_, err := loan.RecordPayment(PaymentInput{Amount: d("10"), PaymentType: PaymentInterest}, loanNow)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	err = loan.Close(CloseInput{CollateralConfirmed: true}, loanNow)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestLoan_RejectedIsTerminal(t *testing.T) {
	loan := activeLoan(t)
	loan.Status = LoanRejected

	_, err := loan.RecordPayment(PaymentInput{Amount: d("10"), PaymentType: PaymentInterest}, loanNow)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.ErrorIs(t, loan.Close(CloseInput{CollateralConfirmed: true}, loanNow), ErrInvalidStateTransition)
}

func TestLoan_OverdueStillAcceptsPayments(t *testing.T) {
	loan := activeLoan(t)
	loan.Status = LoanOverdue

	_, err := loan.RecordPayment(PaymentInput{Amount: d("2000"), PaymentType: PaymentInterest}, loanNow)
	require.NoError(t, err)
	assert.Equal(t, LoanOverdue, loan.Status)
}

func TestLoan_DerivedStatus(t *testing.T) {
	t.Run("before first due date", func(t *testing.T) {
		loan := activeLoan(t)
		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 2, 29)))
	})

	t.Run("first due date passed without payment", func(t *testing.T) {
		loan := activeLoan(t)
		assert.Equal(t, LoanOverdue, loan.DerivedStatus(date(2024, 3, 1)))
	})

	t.Run("payment in the period keeps it active", func(t *testing.T) {
		loan := activeLoan(t)
		_, err := loan.RecordPayment(PaymentInput{Amount: d("2000"), PaymentType: PaymentInterest, PaymentDate: date(2024, 2, 20)}, loanNow)
		require.NoError(t, err)
		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 3, 1)))
		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 3, 31)))
		assert.Equal(t, LoanOverdue, loan.DerivedStatus(date(2024, 4, 1)))
	})

	t.Run("overdue reverts once paid", func(t *testing.T) {
		loan := activeLoan(t)
		loan.Status = LoanOverdue
		_, err := loan.RecordPayment(PaymentInput{Amount: d("2000"), PaymentType: PaymentInterest, PaymentDate: date(2024, 3, 2)}, loanNow)
		require.NoError(t, err)
		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 3, 5)))
	})

	t.Run("past end date with principal outstanding", func(t *testing.T) {
		in := loanInput(RepaymentBullet)
		in.TenureMonths = 3
		loan, err := NewLoan(in, loanNow)
		require.NoError(t, err)

		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 4, 30)))
		assert.Equal(t, LoanOverdue, loan.DerivedStatus(date(2024, 5, 1)))

		_, err = loan.RecordPayment(PaymentInput{Amount: d("100000"), PaymentType: PaymentPrincipal}, loanNow)
		require.NoError(t, err)
		assert.Equal(t, LoanActive, loan.DerivedStatus(date(2024, 5, 1)))
	})

	t.Run("closed stays closed", func(t *testing.T) {
		loan := activeLoan(t)
		require.NoError(t, loan.Close(CloseInput{CollateralConfirmed: true}, loanNow))
		assert.Equal(t, LoanClosed, loan.DerivedStatus(date(2030, 1, 1)))
	})
}

func TestLoan_BulletAmountAndReminder(t *testing.T) {
	in := loanInput(RepaymentBullet)
	in.TenureMonths = 6
	loan, err := NewLoan(in, loanNow)
	require.NoError(t, err)

	assert.True(t, loan.BulletAmount().Equal(d("112000")))

	reminder := loan.Reminder(date(2024, 3, 10))
	assert.True(t, reminder.MonthlyInterest.Equal(d("2000")))
	assert.True(t, reminder.AmountDue.Equal(d("112000")))
	assert.Equal(t, date(2024, 7, 31), reminder.NextDueDate)

	emi, err := NewLoan(loanInput(RepaymentEMI), loanNow)
	require.NoError(t, err)
	reminder = emi.Reminder(date(2024, 2, 10))
	assert.True(t, reminder.AmountDue.Equal(emi.EMIAmount))
	assert.Equal(t, date(2024, 2, 29), reminder.NextDueDate)

	io := activeLoan(t)
	reminder = io.Reminder(date(2024, 2, 10))
	assert.True(t, reminder.AmountDue.Equal(d("2000")))
}
