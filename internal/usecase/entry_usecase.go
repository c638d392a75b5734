package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// EntryUseCase admits and removes party ledger entries and builds statements.
type EntryUseCase struct {
	txManager TransactionManager
	partyRepo PartyRepository
	entryRepo EntryRepository
	idGen     IDGenerator
	journal   journal
	location  *time.Location
}

// NewEntryUseCase creates a new EntryUseCase. Transaction dates default to
// today in location.
func NewEntryUseCase(
	txManager TransactionManager,
	partyRepo PartyRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	location *time.Location,
) *EntryUseCase {
	if location == nil {
		location = time.UTC
	}
	return &EntryUseCase{
		txManager: txManager,
		partyRepo: partyRepo,
		entryRepo: entryRepo,
		idGen:     idGen,
		journal:   journal{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
		location:  location,
	}
}

// AdmitEntryInput represents input for recording a ledger entry.
type AdmitEntryInput struct {
	ShopID          string
	PartyID         string
	Amount          string
	EntryType       string
	TransactionType string
	Description     string
	TransactionDate *time.Time
	Attachments     []domain.Attachment
}

// AdmitEntry validates and stores a new entry against a party.
func (uc *EntryUseCase) AdmitEntry(ctx context.Context, input AdmitEntryInput) (*domain.Entry, error) {
	// Reject malformed amounts before touching storage
	if _, err := domain.ParseAmount(input.Amount); err != nil {
		uc.journal.rejected("admit_entry", err)
		return nil, err
	}

	now := time.Now().UTC()
	txDate := now.In(uc.location)
	if input.TransactionDate != nil {
		txDate = *input.TransactionDate
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	party, err := uc.partyRepo.GetByIDForUpdate(txCtx, tx, input.ShopID, input.PartyID)
	if err != nil {
		return nil, err
	}

	entry, err := domain.AdmitEntry(party, domain.EntryInput{
		ID:              uc.idGen.Generate(),
		Amount:          input.Amount,
		EntryType:       input.EntryType,
		TransactionType: input.TransactionType,
		Description:     input.Description,
		TransactionDate: txDate,
		Attachments:     input.Attachments,
	}, now)
	if err != nil {
		uc.journal.rejected("admit_entry", err)
		return nil, err
	}

	if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
		return nil, err
	}

	event := domain.EntryAdmittedEvent{
		EntryID:         entry.ID,
		PartyID:         entry.PartyID,
		Amount:          entry.Amount.StringFixed(domain.MinorUnitPlaces),
		EntryType:       string(entry.EntryType),
		TransactionType: string(entry.TransactionType),
		TransactionDate: entry.TransactionDate.Format(time.DateOnly),
	}
	if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeEntry, entry.ID, domain.EventTypeEntryAdmitted, domain.MarshalState(event), now); err != nil {
		return nil, err
	}
	if err := uc.journal.audit(ctx, tx, entry.ShopID, domain.AuditActionEntryAdmit, domain.AggregateTypeEntry, entry.ID, nil, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if m := uc.journal.metrics; m != nil {
		m.EntriesAdmitted.WithLabelValues(string(entry.EntryType)).Inc()
		m.EntryAmount.Observe(entry.Amount.InexactFloat64())
	}

	return entry, nil
}

// DeleteEntry hides an entry from every future balance computation.
func (uc *EntryUseCase) DeleteEntry(ctx context.Context, shopID, entryID string) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	entry, err := uc.entryRepo.GetByIDForUpdate(txCtx, tx, shopID, entryID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := entry.SoftDelete(now); err != nil {
		return err
	}

	if err := uc.entryRepo.SoftDelete(txCtx, tx, entry.ID, now); err != nil {
		return err
	}

	payload := map[string]any{"entry_id": entry.ID, "party_id": entry.PartyID}
	if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeEntry, entry.ID, domain.EventTypeEntryDeleted, payload, now); err != nil {
		return err
	}
	if err := uc.journal.audit(ctx, tx, shopID, domain.AuditActionEntryDelete, domain.AggregateTypeEntry, entry.ID, nil, entry); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.EntriesDeleted.Inc()
	}

	return nil
}

// GetEntry returns a single entry of the shop.
func (uc *EntryUseCase) GetEntry(ctx context.Context, shopID, entryID string) (*domain.Entry, error) {
	return uc.entryRepo.GetByID(ctx, shopID, entryID)
}

// StatementInput selects a party statement. Zero dates leave the range open.
type StatementInput struct {
	ShopID  string
	PartyID string
	From    time.Time
	To      time.Time
}

// Statement is a party's balance timeline, restricted to a date range.
type Statement struct {
	Party          *domain.Party
	Labels         domain.Labels
	OpeningBalance decimal.Decimal
	Rows           []domain.BalanceRow
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	CurrentBalance decimal.Decimal
	BalanceLabel   string
}

// GetStatement replays every entry of the party from zero and then applies
// the date range, so the opening balance includes earlier entries. Deleted
// parties have no statement.
func (uc *EntryUseCase) GetStatement(ctx context.Context, input StatementInput) (*Statement, error) {
	party, err := uc.partyRepo.GetByID(ctx, input.ShopID, input.PartyID)
	if err != nil {
		return nil, err
	}
	if party.IsDeleted() {
		return nil, domain.ErrPartyNotFound
	}

	entries, err := uc.entryRepo.ListByParty(ctx, input.ShopID, party.ID)
	if err != nil {
		return nil, err
	}

	timeline := domain.ComputeBalance(entries)
	opening, rows := timeline.Window(input.From, input.To)

	return &Statement{
		Party:          party,
		Labels:         domain.LabelsFor(party.EntityType),
		OpeningBalance: opening,
		Rows:           rows,
		TotalDebit:     timeline.TotalDebit,
		TotalCredit:    timeline.TotalCredit,
		CurrentBalance: timeline.CurrentBalance,
		BalanceLabel:   domain.BalanceLabel(party.EntityType, timeline.CurrentBalance),
	}, nil
}
