package usecase_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
	"github.com/iho/khata/internal/usecase"
	"github.com/iho/khata/internal/usecase/mocks"
)

const shopID = "shop-1"

func newTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	registry := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return metrics.New()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func customer(id string) *domain.Party {
	return &domain.Party{ID: id, ShopID: shopID, Name: "Ravi Kumar", EntityType: domain.EntityCustomer}
}

func supplier(id string) *domain.Party {
	return &domain.Party{ID: id, ShopID: shopID, Name: "Shree Bullion", EntityType: domain.EntitySupplier}
}

func ring() domain.CollateralItem {
	return domain.CollateralItem{
		Name:           "Gold ring",
		MaterialType:   "gold",
		Purity:         "22K",
		GrossWeight:    dec("8.2"),
		NetWeight:      dec("7.9"),
		EstimatedValue: dec("45000"),
	}
}

// storedLoan builds an open loan as it would come back from storage.
func storedLoan(t *testing.T, id string, rt domain.RepaymentType, start time.Time, tenure int) *domain.Loan {
	t.Helper()
	loan, err := domain.NewLoan(domain.LoanInput{
		ID:            id,
		ShopID:        shopID,
		LoanNumber:    "GL-" + id,
		CustomerID:    "cust-1",
		Principal:     dec("50000"),
		InterestRate:  dec("24"),
		RepaymentType: rt,
		TenureMonths:  tenure,
		StartDate:     start,
		Collateral:    []domain.CollateralItem{ring()},
	}, start)
	if err != nil {
		t.Fatalf("build loan: %v", err)
	}
	return loan
}

type loanFixture struct {
	txManager *mocks.FakeTransactionManager
	loans     *mocks.FakeLoanRepository
	payments  *mocks.FakePaymentRepository
	parties   *mocks.FakePartyRepository
	outbox    *mocks.FakeOutboxRepository
	audit     *mocks.FakeAuditRepository
	locker    *mocks.FakeLoanLocker
	metrics   *metrics.Metrics
	uc        *usecase.LoanUseCase
}

func newLoanFixture(t *testing.T, loans ...*domain.Loan) *loanFixture {
	t.Helper()
	f := &loanFixture{
		txManager: mocks.NewFakeTransactionManager(),
		loans:     mocks.NewFakeLoanRepository(loans...),
		payments:  mocks.NewFakePaymentRepository(),
		parties:   mocks.NewFakePartyRepository(customer("cust-1"), supplier("supp-1")),
		outbox:    mocks.NewFakeOutboxRepository(),
		audit:     mocks.NewFakeAuditRepository(),
		locker:    mocks.NewFakeLoanLocker(),
		metrics:   newTestMetrics(t),
	}
	f.uc = usecase.NewLoanUseCase(usecase.LoanUseCaseConfig{
		TxManager:   f.txManager,
		LoanRepo:    f.loans,
		PaymentRepo: f.payments,
		PartyRepo:   f.parties,
		OutboxRepo:  f.outbox,
		AuditRepo:   f.audit,
		Locker:      f.locker,
		IDGen:       mocks.NewFakeIDGenerator(),
		Metrics:     f.metrics,
	})
	return f
}
