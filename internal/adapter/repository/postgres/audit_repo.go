package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

const auditColumns = `id, shop_id, user_id, action, resource_type, resource_id,
	ip_address, user_agent, request_id, before_state, after_state, status, error_message, created_at`

const insertAuditLog = `
	INSERT INTO audit_logs (` + auditColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db      DBTX
	retrier *Retrier
}

// NewAuditRepository creates a new audit repository. retrier may be nil.
func NewAuditRepository(db DBTX, retrier *Retrier) *AuditRepository {
	return &AuditRepository{db: db, retrier: retrier}
}

// Create inserts a new audit log entry outside any business transaction.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.insert(ctx, r.db, log)
}

// CreateTx inserts an audit log entry inside tx so it commits with the
// change it describes.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	return r.insert(ctx, q, log)
}

func (r *AuditRepository) insert(ctx context.Context, q DBTX, log *domain.AuditLog) error {
	before, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}
	after, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, insertAuditLog,
		log.ID,
		log.ShopID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		before,
		after,
		log.Status,
		log.ErrorMessage,
		timeToPgTimestamptz(log.CreatedAt),
	)
	return err
}

// List retrieves audit logs with filtering, newest first.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ShopID != "" {
		query += ` AND shop_id = ` + arg(filter.ShopID)
	}
	if filter.Action != "" {
		query += ` AND action = ` + arg(filter.Action)
	}
	if filter.ResourceType != "" {
		query += ` AND resource_type = ` + arg(filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query += ` AND resource_id = ` + arg(filter.ResourceID)
	}
	if filter.StartDate != nil {
		query += ` AND created_at >= ` + arg(timeToPgTimestamptz(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query += ` AND created_at < ` + arg(timeToPgTimestamptz(*filter.EndDate))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	var logs []*domain.AuditLog
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		logs = logs[:0]
		for rows.Next() {
			var (
				log                             domain.AuditLog
				beforeStateJSON, afterStateJSON []byte
				createdAt                       pgtype.Timestamptz
			)

			err := rows.Scan(
				&log.ID,
				&log.ShopID,
				&log.UserID,
				&log.Action,
				&log.ResourceType,
				&log.ResourceID,
				&log.IPAddress,
				&log.UserAgent,
				&log.RequestID,
				&beforeStateJSON,
				&afterStateJSON,
				&log.Status,
				&log.ErrorMessage,
				&createdAt,
			)
			if err != nil {
				return err
			}

			if beforeStateJSON != nil {
				_ = json.Unmarshal(beforeStateJSON, &log.BeforeState)
			}
			if afterStateJSON != nil {
				_ = json.Unmarshal(afterStateJSON, &log.AfterState)
			}
			log.CreatedAt = createdAt.Time

			logs = append(logs, &log)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// GetByResourceID retrieves all audit logs for a specific resource
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	return r.List(ctx, domain.AuditFilter{
		ResourceType: resourceType,
		ResourceID:   resourceID,
	})
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}
