package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrInvalidLoanNumber = errors.New("invalid loan number")
)

// Validation constants
const (
	MaxPartyNameLength   = 255
	MinPartyNameLength   = 1
	MaxDescriptionLength = 1000
	MaxNotesLength       = 2000
	MaxLoanNumberLength  = 64
	MaxAmount            = "100000000000" // 10^11 rupees
	MinPhoneDigits       = 7
	MaxPhoneDigits       = 15
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex      = regexp.MustCompile(`^\+?[0-9][0-9 \-]*$`)
	loanNumberRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/_\-]*$`)
)

// ValidatePartyName validates a party display name
func ValidatePartyName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinPartyNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidPartyName)
	}

	if len(name) > MaxPartyNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidPartyName, MaxPartyNameLength)
	}

	// Check for SQL injection attempts
	dangerous := []string{"--", "/*", "*/", ";"}
	for _, pattern := range dangerous {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("%w: contains forbidden characters", ErrInvalidPartyName)
		}
	}

	return nil
}

// ValidatePhone accepts digits with an optional leading + and spaces or dashes
// as separators.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)

	if !phoneRegex.MatchString(phone) {
		return ErrInvalidPhone
	}

	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	if digits < MinPhoneDigits || digits > MaxPhoneDigits {
		return fmt.Errorf("%w: expected %d to %d digits", ErrInvalidPhone, MinPhoneDigits, MaxPhoneDigits)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateLoanNumber validates a shop supplied loan number
func ValidateLoanNumber(number string) error {
	if len(number) > MaxLoanNumberLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidLoanNumber, MaxLoanNumberLength)
	}

	if !loanNumberRegex.MatchString(number) {
		return fmt.Errorf("%w: %q", ErrInvalidLoanNumber, number)
	}

	return nil
}

// ValidateNotes limits free text attached to payments and settlements
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidDescription, MaxNotesLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
