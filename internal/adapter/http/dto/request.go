package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// CreatePartyRequest represents a request to create a party.
type CreatePartyRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	EntityType string `json:"entity_type"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePartyRequest) ToUseCaseInput(shopID string) usecase.CreatePartyInput {
	return usecase.CreatePartyInput{
		ShopID:     shopID,
		Name:       r.Name,
		Phone:      r.Phone,
		Email:      r.Email,
		Address:    r.Address,
		EntityType: r.EntityType,
	}
}

// AttachmentPayload is a document reference previously returned by the
// upload endpoint.
type AttachmentPayload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// CreateEntryRequest represents a request to add a ledger entry to a party.
type CreateEntryRequest struct {
	Amount          Amount              `json:"amount"`
	EntryType       string              `json:"entry_type"`
	TransactionType string              `json:"transaction_type,omitempty"`
	Description     string              `json:"description,omitempty"`
	TransactionDate *Date               `json:"transaction_date,omitempty"`
	Attachments     []AttachmentPayload `json:"attachments,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput(shopID, partyID string) usecase.AdmitEntryInput {
	var attachments []domain.Attachment
	for _, a := range r.Attachments {
		attachments = append(attachments, domain.Attachment(a))
	}

	return usecase.AdmitEntryInput{
		ShopID:          shopID,
		PartyID:         partyID,
		Amount:          r.Amount.String(),
		EntryType:       r.EntryType,
		TransactionType: r.TransactionType,
		Description:     r.Description,
		TransactionDate: r.TransactionDate.Ptr(),
		Attachments:     attachments,
	}
}

// CollateralRequest describes one pledged item.
type CollateralRequest struct {
	Name           string `json:"name"`
	MaterialType   string `json:"material_type,omitempty"`
	Purity         string `json:"purity,omitempty"`
	GrossWeight    Amount `json:"gross_weight,omitempty"`
	NetWeight      Amount `json:"net_weight,omitempty"`
	EstimatedValue Amount `json:"estimated_value,omitempty"`
}

func (r *CollateralRequest) toDomain() (domain.CollateralItem, error) {
	gross, err := optionalDecimal("gross_weight", r.GrossWeight, domain.ErrInvalidCollateral)
	if err != nil {
		return domain.CollateralItem{}, err
	}
	net, err := optionalDecimal("net_weight", r.NetWeight, domain.ErrInvalidCollateral)
	if err != nil {
		return domain.CollateralItem{}, err
	}
	value, err := optionalDecimal("estimated_value", r.EstimatedValue, domain.ErrInvalidCollateral)
	if err != nil {
		return domain.CollateralItem{}, err
	}

	return domain.CollateralItem{
		Name:           r.Name,
		MaterialType:   r.MaterialType,
		Purity:         r.Purity,
		GrossWeight:    gross,
		NetWeight:      net,
		EstimatedValue: value,
	}, nil
}

// CreateLoanRequest represents a request to open a loan against collateral.
type CreateLoanRequest struct {
	LoanNumber    string              `json:"loan_number,omitempty"`
	CustomerID    string              `json:"customer_id"`
	Principal     Amount              `json:"principal"`
	InterestRate  Amount              `json:"interest_rate"`
	RepaymentType string              `json:"repayment_type"`
	TenureMonths  int                 `json:"tenure_months,omitempty"`
	StartDate     *Date               `json:"start_date,omitempty"`
	EndDate       *Date               `json:"end_date,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Collateral    []CollateralRequest `json:"collateral"`
}

// ToUseCaseInput converts to use case input. Malformed numbers are reported
// as invalid loan terms.
func (r *CreateLoanRequest) ToUseCaseInput(shopID string) (usecase.CreateLoanInput, error) {
	principal, err := requiredDecimal("principal", r.Principal, domain.ErrInvalidAmount)
	if err != nil {
		return usecase.CreateLoanInput{}, err
	}
	rate, err := optionalDecimal("interest_rate", r.InterestRate, domain.ErrInvalidLoanTerms)
	if err != nil {
		return usecase.CreateLoanInput{}, err
	}

	collateral := make([]domain.CollateralItem, 0, len(r.Collateral))
	for _, c := range r.Collateral {
		item, err := c.toDomain()
		if err != nil {
			return usecase.CreateLoanInput{}, err
		}
		collateral = append(collateral, item)
	}

	return usecase.CreateLoanInput{
		ShopID:        shopID,
		LoanNumber:    r.LoanNumber,
		CustomerID:    r.CustomerID,
		Principal:     principal,
		InterestRate:  rate,
		RepaymentType: r.RepaymentType,
		TenureMonths:  r.TenureMonths,
		StartDate:     r.StartDate.Ptr(),
		EndDate:       r.EndDate.Ptr(),
		Notes:         r.Notes,
		Collateral:    collateral,
	}, nil
}

// RecordPaymentRequest represents money received against a loan.
type RecordPaymentRequest struct {
	Amount        Amount `json:"amount"`
	PaymentType   string `json:"payment_type"`
	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentDate   *Date  `json:"payment_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RecordPaymentRequest) ToUseCaseInput(shopID, loanID string) (usecase.RecordPaymentInput, error) {
	amount, err := domain.ParseAmount(r.Amount.String())
	if err != nil {
		return usecase.RecordPaymentInput{}, err
	}

	return usecase.RecordPaymentInput{
		ShopID:        shopID,
		LoanID:        loanID,
		Amount:        amount,
		PaymentType:   r.PaymentType,
		PaymentMethod: r.PaymentMethod,
		PaymentDate:   r.PaymentDate.Ptr(),
		Notes:         r.Notes,
	}, nil
}

// CloseLoanRequest represents a request to settle a loan. CollateralReturned
// must be true.
type CloseLoanRequest struct {
	SettlementAmount   *Amount `json:"settlement_amount,omitempty"`
	SettlementNotes    string  `json:"settlement_notes,omitempty"`
	CollateralReturned bool    `json:"collateral_returned"`
}

// ToUseCaseInput converts to use case input.
func (r *CloseLoanRequest) ToUseCaseInput(shopID, loanID string) (usecase.CloseLoanInput, error) {
	input := usecase.CloseLoanInput{
		ShopID:              shopID,
		LoanID:              loanID,
		SettlementNotes:     r.SettlementNotes,
		CollateralConfirmed: r.CollateralReturned,
	}

	if r.SettlementAmount != nil {
		amount, err := requiredDecimal("settlement_amount", *r.SettlementAmount, domain.ErrInvalidAmount)
		if err != nil {
			return usecase.CloseLoanInput{}, err
		}
		input.SettlementAmount = &amount
	}
	return input, nil
}

// EMICalculatorRequest asks for the EMI and schedule of prospective terms.
type EMICalculatorRequest struct {
	Principal    Amount `json:"principal"`
	InterestRate Amount `json:"interest_rate"`
	TenureMonths int    `json:"tenure_months"`
	StartDate    *Date  `json:"start_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *EMICalculatorRequest) ToUseCaseInput() (usecase.EMIQuoteInput, error) {
	principal, err := requiredDecimal("principal", r.Principal, domain.ErrInvalidLoanTerms)
	if err != nil {
		return usecase.EMIQuoteInput{}, err
	}
	rate, err := requiredDecimal("interest_rate", r.InterestRate, domain.ErrInvalidLoanTerms)
	if err != nil {
		return usecase.EMIQuoteInput{}, err
	}

	input := usecase.EMIQuoteInput{
		Principal:    principal,
		InterestRate: rate,
		TenureMonths: r.TenureMonths,
	}
	if start := r.StartDate.Ptr(); start != nil {
		input.StartDate = *start
	}
	return input, nil
}

// InterestCalculatorRequest asks for the monthly interest of prospective
// terms and, given a start date, the next due date.
type InterestCalculatorRequest struct {
	Principal    Amount `json:"principal"`
	InterestRate Amount `json:"interest_rate"`
	StartDate    *Date  `json:"start_date,omitempty"`
	Today        *Date  `json:"today,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *InterestCalculatorRequest) ToUseCaseInput() (usecase.InterestQuoteInput, error) {
	principal, err := requiredDecimal("principal", r.Principal, domain.ErrInvalidLoanTerms)
	if err != nil {
		return usecase.InterestQuoteInput{}, err
	}
	rate, err := requiredDecimal("interest_rate", r.InterestRate, domain.ErrInvalidLoanTerms)
	if err != nil {
		return usecase.InterestQuoteInput{}, err
	}

	input := usecase.InterestQuoteInput{Principal: principal, InterestRate: rate}
	if start := r.StartDate.Ptr(); start != nil {
		input.StartDate = *start
	}
	if today := r.Today.Ptr(); today != nil {
		input.Today = *today
	}
	return input, nil
}

func requiredDecimal(field string, raw Amount, sentinel error) (decimal.Decimal, error) {
	if strings.TrimSpace(raw.String()) == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", sentinel, field)
	}
	return optionalDecimal(field, raw, sentinel)
}

func optionalDecimal(field string, raw Amount, sentinel error) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw.String())
	if text == "" {
		return decimal.Zero, nil
	}
	d, err := domain.ParseDecimal(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a plain decimal", sentinel, field, text)
	}
	return d, nil
}
