package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	ShopID       string
	UserID       string // Who performed the action
	Action       string // What action (entry.admit, loan.close, etc.)
	ResourceType string // party, entry, loan
	ResourceID   string
	IPAddress    string
	UserAgent    string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string // success, failure, error
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Party ledger actions
	AuditActionPartyCreate AuditAction = "party.create"
	AuditActionPartyDelete AuditAction = "party.delete"
	AuditActionEntryAdmit  AuditAction = "entry.admit"
	AuditActionEntryDelete AuditAction = "entry.delete"

	// Loan actions
	AuditActionLoanCreate    AuditAction = "loan.create"
	AuditActionLoanPayment   AuditAction = "loan.payment"
	AuditActionLoanClose     AuditAction = "loan.close"
	AuditActionLoanOverdue   AuditAction = "loan.status_refresh"
	AuditActionAttachmentPut AuditAction = "attachment.upload"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ShopID       string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
