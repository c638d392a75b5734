package domain

import "errors"

var (
	// Amount errors
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// Party ledger errors
	ErrPartyNotFound       = errors.New("party not found")
	ErrEntryNotFound       = errors.New("ledger entry not found")
	ErrInvalidEntryType    = errors.New("entry type must be DEBIT or CREDIT")
	ErrInvalidEntityType   = errors.New("invalid entity type")
	ErrInvalidPartyName    = errors.New("invalid party name")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidTransactDate = errors.New("transaction date is required")
	ErrInvalidDescription  = errors.New("invalid description")

	// Loan errors
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInvalidLoanTerms       = errors.New("invalid loan terms")
	ErrCollateralNotConfirmed = errors.New("collateral return must be confirmed before closing the loan")
	ErrInvalidStateTransition = errors.New("operation not allowed in the current loan state")
	ErrInvalidPaymentType     = errors.New("invalid payment type")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidCollateral      = errors.New("invalid collateral item")
	ErrDuplicateLoanNumber    = errors.New("loan number already exists for this shop")
	ErrConcurrentModification = errors.New("record was modified concurrently")
	ErrLoanLocked             = errors.New("another operation on this loan is in progress")
	ErrInvalidRepaymentType   = errors.New("invalid repayment type")
	ErrInvalidLoanStatus      = errors.New("invalid loan status")
)

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrLoanNotFound)
}
