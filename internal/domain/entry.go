package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the direction of a ledger entry. DEBIT increases what the
// party owes the shop, CREDIT decreases it.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// IsValid reports whether the entry type is DEBIT or CREDIT.
func (t EntryType) IsValid() bool {
	return t == EntryDebit || t == EntryCredit
}

// ParseEntryType normalizes and validates an entry type.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidEntryType
	}
	return t, nil
}

// TransactionType categorizes an entry for downstream reporting.
type TransactionType string

const (
	TransactionSale     TransactionType = "SALE"
	TransactionPayment  TransactionType = "PAYMENT"
	TransactionPurchase TransactionType = "PURCHASE"
	TransactionOdhara   TransactionType = "ODHARA"
	TransactionJama     TransactionType = "JAMA"
)

type inferenceKey struct {
	entity EntityType
	entry  EntryType
}

var transactionTypeTable = map[inferenceKey]TransactionType{
	{EntityCustomer, EntryDebit}:  TransactionSale,
	{EntityCustomer, EntryCredit}: TransactionPayment,
	{EntitySupplier, EntryCredit}: TransactionPurchase,
	{EntitySupplier, EntryDebit}:  TransactionPayment,
}

// InferTransactionType returns the transaction type implied by the party
// relationship and entry direction.
func InferTransactionType(entity EntityType, entry EntryType) TransactionType {
	if t, ok := transactionTypeTable[inferenceKey{entity, entry}]; ok {
		return t
	}
	if entry == EntryCredit {
		return TransactionJama
	}
	return TransactionOdhara
}

// Attachment is an opaque reference to a document owned by the storage
// collaborator.
type Attachment struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Entry is an immutable monetary movement against one party.
type Entry struct {
	ID              string
	ShopID          string
	PartyID         string
	Amount          decimal.Decimal
	EntryType       EntryType
	TransactionType TransactionType
	Description     string
	TransactionDate time.Time
	Attachments     []Attachment
	CreatedAt       time.Time
	DeletedAt       *time.Time
}

// IsDeleted reports whether the entry has been soft-deleted.
func (e *Entry) IsDeleted() bool {
	return e.DeletedAt != nil
}

// SignedAmount returns +amount for DEBIT and -amount for CREDIT.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.EntryType == EntryCredit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// SoftDelete hides the entry from future balance computations.
func (e *Entry) SoftDelete(now time.Time) error {
	if e.IsDeleted() {
		return ErrEntryNotFound
	}
	e.DeletedAt = &now
	return nil
}

// EntryInput carries the caller supplied fields of a new entry.
type EntryInput struct {
	ID              string
	Amount          string
	EntryType       string
	TransactionType string
	Description     string
	TransactionDate time.Time
	Attachments     []Attachment
}

// AdmitEntry validates a new entry for party and fills in the inferred
// transaction type. It performs no I/O.
func AdmitEntry(party *Party, input EntryInput, now time.Time) (*Entry, error) {
	if party == nil || party.IsDeleted() {
		return nil, ErrPartyNotFound
	}

	amount, err := ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}

	entryType, err := ParseEntryType(input.EntryType)
	if err != nil {
		return nil, err
	}

	if input.TransactionDate.IsZero() {
		return nil, ErrInvalidTransactDate
	}

	txType := TransactionType(strings.ToUpper(strings.TrimSpace(input.TransactionType)))
	if txType == "" {
		txType = InferTransactionType(party.EntityType, entryType)
	}

	description := strings.TrimSpace(input.Description)
	if len(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}

	return &Entry{
		ID:              input.ID,
		ShopID:          party.ShopID,
		PartyID:         party.ID,
		Amount:          amount,
		EntryType:       entryType,
		TransactionType: txType,
		Description:     description,
		TransactionDate: DateOnly(input.TransactionDate),
		Attachments:     input.Attachments,
		CreatedAt:       now,
	}, nil
}
