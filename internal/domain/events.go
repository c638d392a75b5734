package domain

import "time"

// Event types
const (
	EventTypePartyCreated      = "party.created"
	EventTypePartyDeleted      = "party.deleted"
	EventTypeEntryAdmitted     = "entry.admitted"
	EventTypeEntryDeleted      = "entry.deleted"
	EventTypeLoanCreated       = "loan.created"
	EventTypeLoanPayment       = "loan.payment_recorded"
	EventTypeLoanClosed        = "loan.closed"
	EventTypeLoanStatusChanged = "loan.status_changed"
	EventTypeLoanReminderDue   = "loan.reminder_due"
)

// Aggregate types
const (
	AggregateTypeParty = "party"
	AggregateTypeEntry = "entry"
	AggregateTypeLoan  = "loan"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EntryAdmittedEvent payload
type EntryAdmittedEvent struct {
	EntryID         string `json:"entry_id"`
	PartyID         string `json:"party_id"`
	Amount          string `json:"amount"`
	EntryType       string `json:"entry_type"`
	TransactionType string `json:"transaction_type"`
	TransactionDate string `json:"transaction_date"`
}

// LoanPaymentEvent payload
type LoanPaymentEvent struct {
	LoanID          string `json:"loan_id"`
	PaymentID       string `json:"payment_id"`
	Amount          string `json:"amount"`
	PaymentType     string `json:"payment_type"`
	TotalAmountPaid string `json:"total_amount_paid"`
}

// LoanReminderEvent payload handed to the messaging collaborator
type LoanReminderEvent struct {
	LoanID               string `json:"loan_id"`
	LoanNumber           string `json:"loan_number"`
	CustomerID           string `json:"customer_id"`
	AmountDue            string `json:"amount_due"`
	MonthlyInterest      string `json:"monthly_interest"`
	OutstandingPrincipal string `json:"outstanding_principal"`
	DueDate              string `json:"due_date"`
}

// NewReminderEvent formats a reminder for the outbox.
func NewReminderEvent(r LoanReminder) LoanReminderEvent {
	return LoanReminderEvent{
		LoanID:               r.LoanID,
		LoanNumber:           r.LoanNumber,
		CustomerID:           r.CustomerID,
		AmountDue:            r.AmountDue.StringFixed(MinorUnitPlaces),
		MonthlyInterest:      r.MonthlyInterest.StringFixed(MinorUnitPlaces),
		OutstandingPrincipal: r.OutstandingPrincipal.StringFixed(MinorUnitPlaces),
		DueDate:              r.NextDueDate.Format(time.DateOnly),
	}
}
