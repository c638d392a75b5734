package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// PartyUseCase handles party management.
type PartyUseCase struct {
	txManager TransactionManager
	partyRepo PartyRepository
	idGen     IDGenerator
	journal   journal
}

// NewPartyUseCase creates a new PartyUseCase.
func NewPartyUseCase(
	txManager TransactionManager,
	partyRepo PartyRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PartyUseCase {
	return &PartyUseCase{
		txManager: txManager,
		partyRepo: partyRepo,
		idGen:     idGen,
		journal:   journal{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen, metrics: metrics},
	}
}

// CreatePartyInput represents input for creating a party.
type CreatePartyInput struct {
	ShopID     string
	Name       string
	Phone      string
	Email      string
	Address    string
	EntityType string
}

// CreateParty validates and stores a new party.
func (uc *PartyUseCase) CreateParty(ctx context.Context, input CreatePartyInput) (*domain.Party, error) {
	if input.ShopID == "" {
		return nil, domain.ErrMissingShop
	}

	entityType, err := domain.ParseEntityType(input.EntityType)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	party := &domain.Party{
		ID:         uc.idGen.Generate(),
		ShopID:     input.ShopID,
		Name:       strings.TrimSpace(input.Name),
		Phone:      strings.TrimSpace(input.Phone),
		Email:      strings.TrimSpace(input.Email),
		Address:    strings.TrimSpace(input.Address),
		EntityType: entityType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := party.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.partyRepo.Create(txCtx, tx, party); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"party_id":    party.ID,
		"shop_id":     party.ShopID,
		"name":        party.Name,
		"entity_type": string(party.EntityType),
	}
	if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeParty, party.ID, domain.EventTypePartyCreated, payload, now); err != nil {
		return nil, err
	}
	if err := uc.journal.audit(ctx, tx, party.ShopID, domain.AuditActionPartyCreate, domain.AggregateTypeParty, party.ID, nil, party); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.journal.metrics != nil {
		uc.journal.metrics.PartiesCreated.Inc()
	}

	return party, nil
}

// GetParty returns a non-deleted party of the shop.
func (uc *PartyUseCase) GetParty(ctx context.Context, shopID, id string) (*domain.Party, error) {
	party, err := uc.partyRepo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if party.IsDeleted() {
		return nil, domain.ErrPartyNotFound
	}
	return party, nil
}

// ListPartiesInput represents input for listing parties.
type ListPartiesInput struct {
	ShopID     string
	EntityType string
	Search     string
	Limit      int
	Offset     int
}

// ListParties returns the shop's active parties with their derived totals.
func (uc *PartyUseCase) ListParties(ctx context.Context, input ListPartiesInput) ([]*domain.PartySummary, error) {
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	filter := domain.PartyFilter{
		Search: strings.TrimSpace(input.Search),
		Limit:  limit,
		Offset: offset,
	}
	if input.EntityType != "" {
		entityType, err := domain.ParseEntityType(input.EntityType)
		if err != nil {
			return nil, err
		}
		filter.EntityType = entityType
	}

	return uc.partyRepo.List(ctx, input.ShopID, filter)
}

// DeleteParty tombstones a party. Its entries are kept for history.
func (uc *PartyUseCase) DeleteParty(ctx context.Context, shopID, id string) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	party, err := uc.partyRepo.GetByIDForUpdate(txCtx, tx, shopID, id)
	if err != nil {
		return err
	}

	before := *party
	now := time.Now().UTC()
	if err := party.SoftDelete(now); err != nil {
		return err
	}

	if err := uc.partyRepo.SoftDelete(txCtx, tx, party.ID, now); err != nil {
		return err
	}

	payload := map[string]any{"party_id": party.ID, "shop_id": party.ShopID}
	if err := uc.journal.emit(txCtx, tx, domain.AggregateTypeParty, party.ID, domain.EventTypePartyDeleted, payload, now); err != nil {
		return err
	}
	if err := uc.journal.audit(ctx, tx, shopID, domain.AuditActionPartyDelete, domain.AggregateTypeParty, party.ID, before, party); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}
