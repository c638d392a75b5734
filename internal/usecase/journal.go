package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// journal writes the outbox event and audit row that accompany every
// mutation, inside the mutation's transaction.
type journal struct {
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

func (j journal) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) error {
	if j.outboxRepo == nil {
		return nil
	}

	event := &domain.OutboxEvent{
		ID:            j.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Published:     false,
	}
	return j.outboxRepo.Create(ctx, tx, event)
}

func (j journal) audit(ctx context.Context, tx Transaction, shopID string, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if j.auditRepo == nil {
		return nil
	}

	userID := systemActor
	if actor, ok := domain.ActorFromContext(ctx); ok && actor.UserID != "" {
		userID = actor.UserID
	}

	auditLog := &domain.AuditLog{
		ID:           j.idGen.Generate(),
		ShopID:       shopID,
		UserID:       userID,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    time.Now().UTC(),
	}
	if err := j.auditRepo.CreateTx(ctx, tx, auditLog); err != nil {
		return err
	}

	if j.metrics != nil {
		j.metrics.AuditLogsCreated.WithLabelValues(auditLog.Action, auditLog.Status).Inc()
	}
	return nil
}

// rejected counts a refused operation by the kind of domain error.
func (j journal) rejected(operation string, err error) {
	if j.metrics == nil || err == nil {
		return
	}
	j.metrics.EngineErrors.WithLabelValues(operation, errorKind(err)).Inc()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInvalidLoanTerms):
		return "invalid_loan_terms"
	case errors.Is(err, domain.ErrCollateralNotConfirmed):
		return "collateral_not_confirmed"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "invalid_state_transition"
	case domain.IsNotFound(err):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrentModification), errors.Is(err, domain.ErrLoanLocked):
		return "conflict"
	default:
		return "other"
	}
}
