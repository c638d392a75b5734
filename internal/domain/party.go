package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityType classifies the relationship a party has with the shop.
type EntityType string

const (
	EntityCustomer EntityType = "CUSTOMER"
	EntitySupplier EntityType = "SUPPLIER"
	EntityWorker   EntityType = "WORKER"
	EntityPartner  EntityType = "PARTNER"
	EntityOther    EntityType = "OTHER"
)

var validEntityTypes = map[EntityType]bool{
	EntityCustomer: true,
	EntitySupplier: true,
	EntityWorker:   true,
	EntityPartner:  true,
	EntityOther:    true,
}

// IsValid reports whether the entity type is known.
func (e EntityType) IsValid() bool {
	return validEntityTypes[e]
}

// ParseEntityType normalizes and validates an entity type.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", ErrInvalidEntityType
	}
	return e, nil
}

// Party is a counterparty with a running monetary relationship with the shop.
// Its balance is never stored; see ComputeBalance.
type Party struct {
	ID         string
	ShopID     string
	Name       string
	Phone      string
	Email      string
	Address    string
	EntityType EntityType
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// IsDeleted reports whether the party has been tombstoned.
func (p *Party) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Validate checks the party attributes.
func (p *Party) Validate() error {
	if err := ValidatePartyName(p.Name); err != nil {
		return err
	}

	if !p.EntityType.IsValid() {
		return ErrInvalidEntityType
	}

	if p.Phone != "" {
		if err := ValidatePhone(p.Phone); err != nil {
			return err
		}
	}

	if p.Email != "" {
		if err := ValidateEmail(p.Email); err != nil {
			return err
		}
	}

	return nil
}

// SoftDelete tombstones the party. Its entries stay in place.
func (p *Party) SoftDelete(now time.Time) error {
	if p.IsDeleted() {
		return ErrPartyNotFound
	}
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Labels are the colloquial meanings of DEBIT and CREDIT for one kind of party.
type Labels struct {
	Given      string `json:"given"`
	Received   string `json:"received"`
	Receivable string `json:"receivable"`
	Payable    string `json:"payable"`
}

var entityLabels = map[EntityType]Labels{
	EntityCustomer: {Given: "Sale (Udhar)", Received: "Payment Received (Jama)", Receivable: "Customer will pay", Payable: "Advance with shop"},
	EntitySupplier: {Given: "Payment Made", Received: "Purchase", Receivable: "Advance with supplier", Payable: "Shop will pay"},
	EntityWorker:   {Given: "Advance / Wages Paid", Received: "Work Received", Receivable: "Advance with worker", Payable: "Wages due"},
	EntityPartner:  {Given: "Withdrawal", Received: "Capital Introduced", Receivable: "Partner owes", Payable: "Shop owes partner"},
	EntityOther:    {Given: "Odhara (Given)", Received: "Jama (Received)", Receivable: "Receivable", Payable: "Payable"},
}

// LabelsFor returns the display labels for an entity type. Unknown types get
// the generic labels.
func LabelsFor(e EntityType) Labels {
	if l, ok := entityLabels[e]; ok {
		return l
	}
	return entityLabels[EntityOther]
}

// PartySummary is a party with its totals derived from non-deleted entries.
type PartySummary struct {
	Party       *Party
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	EntryCount  int
}

// Balance is total debit minus total credit.
func (s *PartySummary) Balance() decimal.Decimal {
	return s.TotalDebit.Sub(s.TotalCredit)
}

// PartyFilter narrows a party listing.
type PartyFilter struct {
	EntityType EntityType
	Search     string
	Limit      int
	Offset     int
}
