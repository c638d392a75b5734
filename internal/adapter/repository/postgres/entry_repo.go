package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

const entryColumns = `id, shop_id, party_id, amount, entry_type, transaction_type, description, transaction_date, attachments, created_at, deleted_at`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db      DBTX
	retrier *Retrier
}

// NewEntryRepository creates a new EntryRepository. retrier may be nil.
func NewEntryRepository(db DBTX, retrier *Retrier) *EntryRepository {
	return &EntryRepository{db: db, retrier: retrier}
}

// Create inserts an entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	attachments := entry.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO ledger_entries (id, shop_id, party_id, amount, entry_type, transaction_type, description, transaction_date, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID,
		entry.ShopID,
		entry.PartyID,
		decimalToNumeric(entry.Amount),
		string(entry.EntryType),
		string(entry.TransactionType),
		entry.Description,
		timeToPgDate(entry.TransactionDate),
		attachmentsJSON,
		timeToPgTimestamptz(entry.CreatedAt),
	)
	return err
}

// GetByID retrieves an entry of the shop, deleted or not.
func (r *EntryRepository) GetByID(ctx context.Context, shopID, id string) (*domain.Entry, error) {
	var entry *domain.Entry
	err := r.retrier.Retry(ctx, func() error {
		var err error
		entry, err = scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE shop_id = $1 AND id = $2`, shopID, id))
		return err
	})
	return entry, err
}

// GetByIDForUpdate retrieves an entry with a FOR UPDATE lock.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, shopID, id string) (*domain.Entry, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	return scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE shop_id = $1 AND id = $2 FOR UPDATE`, shopID, id))
}

// ListByParty returns the party's non-deleted entries in statement order.
func (r *EntryRepository) ListByParty(ctx context.Context, shopID, partyID string) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := r.retrier.Retry(ctx, func() error {
		rows, err := r.db.Query(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE shop_id = $1 AND party_id = $2 AND deleted_at IS NULL
			ORDER BY transaction_date, created_at, id`, shopID, partyID)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SoftDelete tombstones an entry.
func (r *EntryRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE ledger_entries SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, timeToPgTimestamptz(deletedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e               domain.Entry
		amount          pgtype.Numeric
		entryType       string
		transactionType string
		transactionDate pgtype.Date
		attachments     []byte
		createdAt       pgtype.Timestamptz
		deletedAt       pgtype.Timestamptz
	)

	err := row.Scan(&e.ID, &e.ShopID, &e.PartyID, &amount, &entryType, &transactionType, &e.Description,
		&transactionDate, &attachments, &createdAt, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &e.Attachments); err != nil {
			return nil, err
		}
	}

	e.Amount = numericToDecimal(amount)
	e.EntryType = domain.EntryType(entryType)
	e.TransactionType = domain.TransactionType(transactionType)
	e.TransactionDate = transactionDate.Time
	e.CreatedAt = createdAt.Time
	e.DeletedAt = timestamptzToOptional(deletedAt)
	return &e, nil
}
