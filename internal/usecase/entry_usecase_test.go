package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
	"github.com/iho/khata/internal/usecase/mocks"
)

type entryFixture struct {
	txManager *mocks.FakeTransactionManager
	parties   *mocks.FakePartyRepository
	entries   *mocks.FakeEntryRepository
	outbox    *mocks.FakeOutboxRepository
	audit     *mocks.FakeAuditRepository
	uc        *usecase.EntryUseCase
}

func newEntryFixture(t *testing.T, parties ...*domain.Party) *entryFixture {
	t.Helper()
	f := &entryFixture{
		txManager: mocks.NewFakeTransactionManager(),
		parties:   mocks.NewFakePartyRepository(parties...),
		entries:   mocks.NewFakeEntryRepository(),
		outbox:    mocks.NewFakeOutboxRepository(),
		audit:     mocks.NewFakeAuditRepository(),
	}
	f.uc = usecase.NewEntryUseCase(f.txManager, f.parties, f.entries, f.outbox, f.audit, mocks.NewFakeIDGenerator(), newTestMetrics(t), time.UTC)
	return f
}

func (f *entryFixture) admit(t *testing.T, amount, entryType string, on time.Time) *domain.Entry {
	t.Helper()
	entry, err := f.uc.AdmitEntry(context.Background(), usecase.AdmitEntryInput{
		ShopID:          shopID,
		PartyID:         "cust-1",
		Amount:          amount,
		EntryType:       entryType,
		TransactionDate: &on,
	})
	require.NoError(t, err)
	return entry
}

func TestEntryUseCase_AdmitEntry(t *testing.T) {
	f := newEntryFixture(t, customer("cust-1"))
	on := time.Date(2024, 5, 4, 18, 30, 0, 0, time.UTC)

	entry, err := f.uc.AdmitEntry(context.Background(), usecase.AdmitEntryInput{
		ShopID:      shopID,
		PartyID:     "cust-1",
		Amount:      "2500.50",
		EntryType:   "debit",
		Description: "Earrings on credit",
		Attachments: []domain.Attachment{{Key: "shops/shop-1/attachments/bill.pdf", FileName: "bill.pdf"}},

		TransactionDate: &on,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EntryDebit, entry.EntryType)
	assert.Equal(t, domain.TransactionType("SALE"), entry.TransactionType)
	assert.Equal(t, day(2024, 5, 4), entry.TransactionDate)
	assert.Len(t, entry.Attachments, 1)

	stored, err := f.entries.GetByID(context.Background(), shopID, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("2500.50")))
	assert.Equal(t, []string{domain.EventTypeEntryAdmitted}, f.outbox.EventTypes())
	assert.Len(t, f.audit.Logs, 1)
	assert.Equal(t, 1, f.txManager.Committed)
}

func TestEntryUseCase_AdmitEntry_Rejected(t *testing.T) {
	deleted := customer("cust-2")
	deletedAt := day(2024, 1, 1)
	deleted.DeletedAt = &deletedAt

	tests := []struct {
		name    string
		partyID string
		amount  string
		kind    string
		want    error
	}{
		{"zero amount", "cust-1", "0", "DEBIT", domain.ErrInvalidAmount},
		{"negative amount", "cust-1", "-10", "DEBIT", domain.ErrInvalidAmount},
		{"three decimals", "cust-1", "10.125", "DEBIT", domain.ErrInvalidAmount},
		{"not a number", "cust-1", "ten", "DEBIT", domain.ErrInvalidAmount},
		{"unknown direction", "cust-1", "10", "SIDEWAYS", domain.ErrInvalidEntryType},
		{"unknown party", "nobody", "10", "DEBIT", domain.ErrPartyNotFound},
		{"deleted party", "cust-2", "10", "DEBIT", domain.ErrPartyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEntryFixture(t, customer("cust-1"), deleted)

			_, err := f.uc.AdmitEntry(context.Background(), usecase.AdmitEntryInput{
				ShopID:    shopID,
				PartyID:   tt.partyID,
				Amount:    tt.amount,
				EntryType: tt.kind,
			})
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.outbox.Events)
			assert.Zero(t, f.txManager.Committed)
		})
	}
}

func TestEntryUseCase_AdmitEntry_StorageFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := mocks.NewMockTransaction(ctrl)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	txManager := mocks.NewMockTransactionManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)

	partyRepo := mocks.NewMockPartyRepository(ctrl)
	partyRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, shopID, "cust-1").Return(customer("cust-1"), nil)

	storageErr := errors.New("disk full")
	entryRepo := mocks.NewMockEntryRepository(ctrl)
	entryRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(storageErr)

	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().Return("entry-1")

	uc := usecase.NewEntryUseCase(txManager, partyRepo, entryRepo, nil, nil, idGen, nil, time.UTC)

	_, err := uc.AdmitEntry(context.Background(), usecase.AdmitEntryInput{
		ShopID:    shopID,
		PartyID:   "cust-1",
		Amount:    "100",
		EntryType: "CREDIT",
	})
	require.ErrorIs(t, err, storageErr)
}

func TestEntryUseCase_DeleteEntry(t *testing.T) {
	f := newEntryFixture(t, customer("cust-1"))
	entry := f.admit(t, "100", "DEBIT", day(2024, 5, 1))

	require.NoError(t, f.uc.DeleteEntry(context.Background(), shopID, entry.ID))

	stored, err := f.entries.GetByID(context.Background(), shopID, entry.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, []string{domain.EventTypeEntryAdmitted, domain.EventTypeEntryDeleted}, f.outbox.EventTypes())

	err = f.uc.DeleteEntry(context.Background(), shopID, entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	err = f.uc.DeleteEntry(context.Background(), "shop-2", entry.ID)
	require.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestEntryUseCase_GetStatement(t *testing.T) {
	f := newEntryFixture(t, customer("cust-1"))
	f.admit(t, "1000", "DEBIT", day(2024, 4, 20))
	f.admit(t, "5000", "DEBIT", day(2024, 5, 2))
	f.admit(t, "2000", "CREDIT", day(2024, 5, 10))
	removed := f.admit(t, "999", "DEBIT", day(2024, 5, 11))
	f.admit(t, "300", "CREDIT", day(2024, 6, 1))
	require.NoError(t, f.uc.DeleteEntry(context.Background(), shopID, removed.ID))

	statement, err := f.uc.GetStatement(context.Background(), usecase.StatementInput{
		ShopID:  shopID,
		PartyID: "cust-1",
		From:    day(2024, 5, 1),
		To:      day(2024, 5, 31),
	})
	require.NoError(t, err)

	assert.Equal(t, "1000.00", statement.OpeningBalance.StringFixed(2))
	require.Len(t, statement.Rows, 2)
	assert.Equal(t, "6000.00", statement.Rows[0].BalanceAfter.StringFixed(2))
	assert.Equal(t, "4000.00", statement.Rows[1].BalanceAfter.StringFixed(2))
	assert.Equal(t, "6000.00", statement.TotalDebit.StringFixed(2))
	assert.Equal(t, "2300.00", statement.TotalCredit.StringFixed(2))
	assert.Equal(t, "3700.00", statement.CurrentBalance.StringFixed(2))
	assert.Equal(t, "Customer will pay", statement.BalanceLabel)
	assert.Equal(t, "Sale (Udhar)", statement.Labels.Given)
}

func TestEntryUseCase_GetStatement_UnknownParty(t *testing.T) {
	f := newEntryFixture(t)

	_, err := f.uc.GetStatement(context.Background(), usecase.StatementInput{ShopID: shopID, PartyID: "nobody"})
	require.True(t, domain.IsNotFound(err))
}

func TestEntryUseCase_GetStatement_DeletedParty(t *testing.T) {
	deleted := customer("cust-1")
	gone := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	deleted.DeletedAt = &gone
	f := newEntryFixture(t, deleted)

	_, err := f.uc.GetStatement(context.Background(), usecase.StatementInput{ShopID: shopID, PartyID: "cust-1"})
	require.ErrorIs(t, err, domain.ErrPartyNotFound)
}
