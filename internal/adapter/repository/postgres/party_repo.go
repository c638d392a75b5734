package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

const partyColumns = `id, shop_id, name, phone, email, address, entity_type, created_at, updated_at, deleted_at`

// PartyRepository implements usecase.PartyRepository.
type PartyRepository struct {
	db      DBTX
	retrier *Retrier
}

// NewPartyRepository creates a new PartyRepository. retrier may be nil.
func NewPartyRepository(db DBTX, retrier *Retrier) *PartyRepository {
	return &PartyRepository{db: db, retrier: retrier}
}

// Create inserts a party.
func (r *PartyRepository) Create(ctx context.Context, tx usecase.Transaction, party *domain.Party) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO parties (id, shop_id, name, phone, email, address, entity_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		party.ID,
		party.ShopID,
		party.Name,
		party.Phone,
		party.Email,
		party.Address,
		string(party.EntityType),
		timeToPgTimestamptz(party.CreatedAt),
		timeToPgTimestamptz(party.UpdatedAt),
	)
	return err
}

// GetByID retrieves a party of the shop, deleted or not.
func (r *PartyRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Party, error) {
	var party *domain.Party
	err := r.retrier.Retry(ctx, func() error {
		var err error
		party, err = scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE shop_id = $1 AND id = $2`, shopID, id))
		return err
	})
	return party, err
}

// GetByIDForUpdate retrieves a party with a FOR UPDATE lock.
func (r *PartyRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Party, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	return scanParty(q.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE shop_id = $1 AND id = $2 FOR UPDATE`, shopID, id))
}

// List returns the shop's active parties with totals aggregated over their
// non-deleted entries.
func (r *PartyRepository) List(ctx context.Context, shopID string, filter domain.PartyFilter) ([]*domain.PartySummary, error) {
	query := `
		SELECT p.id, p.shop_id, p.name, p.phone, p.email, p.address, p.entity_type, p.created_at, p.updated_at, p.deleted_at,
		       COALESCE(SUM(e.amount) FILTER (WHERE e.entry_type = 'DEBIT'), 0),
		       COALESCE(SUM(e.amount) FILTER (WHERE e.entry_type = 'CREDIT'), 0),
		       COUNT(e.id)
		FROM parties p
		LEFT JOIN ledger_entries e ON e.party_id = p.id AND e.deleted_at IS NULL
		WHERE p.shop_id = $1 AND p.deleted_at IS NULL`
	args := []any{shopID}

	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		query += ` AND p.entity_type = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (p.name ILIKE $` + n + ` OR p.phone LIKE $` + n + `)`
	}

	args = append(args, filter.Limit, filter.Offset)
	query += ` GROUP BY p.id ORDER BY p.name, p.id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var summaries []*domain.PartySummary
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		summaries = summaries[:0]
		for rows.Next() {
			var (
				p             domain.Party
				s             = domain.PartySummary{Party: &p}
				entityType    string
				createdAt     pgtype.Timestamptz
				updatedAt     pgtype.Timestamptz
				deletedAt     pgtype.Timestamptz
				debit, credit pgtype.Numeric
			)
			if err := rows.Scan(
				&p.ID, &p.ShopID, &p.Name, &p.Phone, &p.Email, &p.Address,
				&entityType, &createdAt, &updatedAt, &deletedAt,
				&debit, &credit, &s.EntryCount,
			); err != nil {
				return err
			}
			p.EntityType = domain.EntityType(entityType)
			p.CreatedAt = createdAt.Time
			p.UpdatedAt = updatedAt.Time
			p.DeletedAt = timestamptzToOptional(deletedAt)
			s.TotalDebit = numericToDecimal(debit)
			s.TotalCredit = numericToDecimal(credit)
			summaries = append(summaries, &s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

// SoftDelete tombstones a party.
func (r *PartyRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE parties SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, timeToPgTimestamptz(deletedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPartyNotFound
	}
	return nil
}

func scanParty(row pgx.Row) (*domain.Party, error) {
	var (
		p          domain.Party
		entityType string
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
		deletedAt  pgtype.Timestamptz
	)

	err := row.Scan(&p.ID, &p.ShopID, &p.Name, &p.Phone, &p.Email, &p.Address, &entityType, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPartyNotFound
		}
		return nil, err
	}

	p.EntityType = domain.EntityType(entityType)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time
	p.DeletedAt = timestamptzToOptional(deletedAt)
	return &p, nil
}
