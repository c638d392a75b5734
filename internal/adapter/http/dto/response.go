package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// ErrorResponse represents an error in API responses. Code is stable and
// machine readable; Message is for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// PartyResponse represents a party in API responses.
type PartyResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
	EntityType string    `json:"entity_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PartyFromDomain converts a domain party to a response.
func PartyFromDomain(p *domain.Party) *PartyResponse {
	return &PartyResponse{
		ID:         p.ID,
		Name:       p.Name,
		Phone:      p.Phone,
		Email:      p.Email,
		Address:    p.Address,
		EntityType: string(p.EntityType),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// PartySummaryResponse is a party with its derived totals.
type PartySummaryResponse struct {
	*PartyResponse
	TotalDebit   decimal.Decimal `json:"total_debit"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	Balance      decimal.Decimal `json:"balance"`
	BalanceLabel string          `json:"balance_label"`
	EntryCount   int             `json:"entry_count"`
}

// PartySummariesFromDomain converts listed parties to responses.
func PartySummariesFromDomain(summaries []*domain.PartySummary) []*PartySummaryResponse {
	result := make([]*PartySummaryResponse, len(summaries))
	for i, s := range summaries {
		balance := s.Balance()
		result[i] = &PartySummaryResponse{
			PartyResponse: PartyFromDomain(s.Party),
			TotalDebit:    s.TotalDebit,
			TotalCredit:   s.TotalCredit,
			Balance:       balance,
			BalanceLabel:  domain.BalanceLabel(s.Party.EntityType, balance),
			EntryCount:    s.EntryCount,
		}
	}
	return result
}

// ListPartiesResponse represents a page of parties.
type ListPartiesResponse struct {
	Parties []*PartySummaryResponse `json:"parties"`
	Total   int64                   `json:"total"`
}

// AttachmentResponse is a stored document reference.
type AttachmentResponse = AttachmentPayload

// AttachmentFromDomain converts a domain attachment to a response.
func AttachmentFromDomain(a *domain.Attachment) *AttachmentResponse {
	resp := AttachmentResponse(*a)
	return &resp
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID              string              `json:"id"`
	PartyID         string              `json:"party_id"`
	Amount          decimal.Decimal     `json:"amount"`
	EntryType       string              `json:"entry_type"`
	TransactionType string              `json:"transaction_type"`
	Description     string              `json:"description,omitempty"`
	TransactionDate Date                `json:"transaction_date"`
	Attachments     []AttachmentPayload `json:"attachments"`
	CreatedAt       time.Time           `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	attachments := make([]AttachmentPayload, len(e.Attachments))
	for i, a := range e.Attachments {
		attachments[i] = AttachmentPayload(a)
	}

	return &EntryResponse{
		ID:              e.ID,
		PartyID:         e.PartyID,
		Amount:          e.Amount,
		EntryType:       string(e.EntryType),
		TransactionType: string(e.TransactionType),
		Description:     e.Description,
		TransactionDate: NewDate(e.TransactionDate),
		Attachments:     attachments,
		CreatedAt:       e.CreatedAt,
	}
}

// LabelsResponse carries the display labels of an entity type.
type LabelsResponse struct {
	EntityType string        `json:"entity_type"`
	Labels     domain.Labels `json:"labels"`
}

// StatementRow is one entry of a statement with the balance after it.
type StatementRow struct {
	*EntryResponse
	Label        string          `json:"label"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// StatementResponse is a party's balance timeline.
type StatementResponse struct {
	Party          *PartyResponse  `json:"party"`
	Labels         domain.Labels   `json:"labels"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Rows           []StatementRow  `json:"rows"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	BalanceLabel   string          `json:"balance_label"`
}

// StatementFromUseCase converts a statement to a response. Each row is
// labelled with the colloquial name of its direction for the party type.
func StatementFromUseCase(s *usecase.Statement) *StatementResponse {
	rows := make([]StatementRow, len(s.Rows))
	for i, row := range s.Rows {
		label := s.Labels.Given
		if row.Entry.EntryType == domain.EntryCredit {
			label = s.Labels.Received
		}
		rows[i] = StatementRow{
			EntryResponse: EntryFromDomain(row.Entry),
			Label:         label,
			BalanceAfter:  row.BalanceAfter,
		}
	}

	return &StatementResponse{
		Party:          PartyFromDomain(s.Party),
		Labels:         s.Labels,
		OpeningBalance: s.OpeningBalance,
		Rows:           rows,
		TotalDebit:     s.TotalDebit,
		TotalCredit:    s.TotalCredit,
		CurrentBalance: s.CurrentBalance,
		BalanceLabel:   s.BalanceLabel,
	}
}

// CollateralResponse represents a pledged item.
type CollateralResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	MaterialType   string          `json:"material_type,omitempty"`
	Purity         string          `json:"purity,omitempty"`
	GrossWeight    decimal.Decimal `json:"gross_weight"`
	NetWeight      decimal.Decimal `json:"net_weight"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

// PaymentResponse represents a loan payment.
type PaymentResponse struct {
	ID            string          `json:"id"`
	LoanID        string          `json:"loan_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentType   string          `json:"payment_type"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   Date            `json:"payment_date"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentFromDomain converts a domain payment to a response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		LoanID:        p.LoanID,
		Amount:        p.Amount,
		PaymentType:   string(p.PaymentType),
		PaymentMethod: string(p.PaymentMethod),
		PaymentDate:   NewDate(p.PaymentDate),
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID                   string               `json:"id"`
	LoanNumber           string               `json:"loan_number"`
	CustomerID           string               `json:"customer_id"`
	Principal            decimal.Decimal      `json:"principal"`
	InterestRate         decimal.Decimal      `json:"interest_rate"`
	RepaymentType        string               `json:"repayment_type"`
	TenureMonths         int                  `json:"tenure_months"`
	EMIAmount            decimal.Decimal      `json:"emi_amount"`
	MonthlyInterest      decimal.Decimal      `json:"monthly_interest"`
	StartDate            Date                 `json:"start_date"`
	EndDate              *Date                `json:"end_date,omitempty"`
	Status               string               `json:"status"`
	TotalAmountPaid      decimal.Decimal      `json:"total_amount_paid"`
	OutstandingPrincipal decimal.Decimal      `json:"outstanding_principal"`
	SettlementAmount     *decimal.Decimal     `json:"settlement_amount,omitempty"`
	SettlementNotes      string               `json:"settlement_notes,omitempty"`
	CollateralReturned   bool                 `json:"collateral_returned"`
	ClosedAt             *time.Time           `json:"closed_at,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	Collateral           []CollateralResponse `json:"collateral,omitempty"`
	Payments             []*PaymentResponse   `json:"payments,omitempty"`
	Version              int64                `json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// LoanFromDomain converts a domain loan to a response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	resp := &LoanResponse{
		ID:                   l.ID,
		LoanNumber:           l.LoanNumber,
		CustomerID:           l.CustomerID,
		Principal:            l.Principal,
		InterestRate:         l.InterestRate,
		RepaymentType:        string(l.RepaymentType),
		TenureMonths:         l.TenureMonths,
		EMIAmount:            l.EMIAmount,
		MonthlyInterest:      l.MonthlyInterest(),
		StartDate:            NewDate(l.StartDate),
		EndDate:              datePtr(l.EndDate),
		Status:               string(l.Status),
		TotalAmountPaid:      l.TotalAmountPaid,
		OutstandingPrincipal: l.OutstandingPrincipal(),
		SettlementAmount:     l.SettlementAmount,
		SettlementNotes:      l.SettlementNotes,
		CollateralReturned:   l.CollateralReturned,
		ClosedAt:             l.ClosedAt,
		Notes:                l.Notes,
		Version:              l.Version,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}

	for _, c := range l.Collateral {
		resp.Collateral = append(resp.Collateral, CollateralResponse{
			ID:             c.ID,
			Name:           c.Name,
			MaterialType:   c.MaterialType,
			Purity:         c.Purity,
			GrossWeight:    c.GrossWeight,
			NetWeight:      c.NetWeight,
			EstimatedValue: c.EstimatedValue,
		})
	}
	for i := range l.Payments {
		resp.Payments = append(resp.Payments, PaymentFromDomain(&l.Payments[i]))
	}
	return resp
}

// LoansFromDomain converts domain loans to responses.
func LoansFromDomain(loans []*domain.Loan) []*LoanResponse {
	result := make([]*LoanResponse, len(loans))
	for i, l := range loans {
		result[i] = LoanFromDomain(l)
	}
	return result
}

// ListLoansResponse represents a page of loans.
type ListLoansResponse struct {
	Loans []*LoanResponse `json:"loans"`
	Total int64           `json:"total"`
}

// PaymentReceiptResponse is returned after a payment is recorded.
type PaymentReceiptResponse struct {
	Payment              *PaymentResponse `json:"payment"`
	TotalAmountPaid      decimal.Decimal  `json:"total_amount_paid"`
	OutstandingPrincipal decimal.Decimal  `json:"outstanding_principal"`
	Status               string           `json:"status"`
}

// PaymentReceiptFromUseCase converts a receipt to a response.
func PaymentReceiptFromUseCase(r *usecase.PaymentReceipt) *PaymentReceiptResponse {
	return &PaymentReceiptResponse{
		Payment:              PaymentFromDomain(r.Payment),
		TotalAmountPaid:      r.TotalAmountPaid,
		OutstandingPrincipal: r.OutstandingPrincipal,
		Status:               string(r.Status),
	}
}

// InstallmentResponse is one schedule row.
type InstallmentResponse struct {
	Number    int             `json:"number"`
	DueDate   Date            `json:"due_date"`
	Total     decimal.Decimal `json:"total"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
}

// InstallmentsFromDomain converts schedule rows to responses.
func InstallmentsFromDomain(rows []domain.Installment) []InstallmentResponse {
	result := make([]InstallmentResponse, len(rows))
	for i, row := range rows {
		result[i] = InstallmentResponse{
			Number:    row.Number,
			DueDate:   NewDate(row.DueDate),
			Total:     row.Total,
			Principal: row.Principal,
			Interest:  row.Interest,
			Balance:   row.Balance,
		}
	}
	return result
}

// ScheduleResponse is the amortization plan of an EMI loan.
type ScheduleResponse struct {
	LoanID        string                `json:"loan_id,omitempty"`
	EMI           decimal.Decimal       `json:"emi"`
	TotalInterest decimal.Decimal       `json:"total_interest"`
	TotalPayable  decimal.Decimal       `json:"total_payable"`
	Installments  []InstallmentResponse `json:"installments"`
}

// ScheduleFromDomain converts a loan schedule to a response.
func ScheduleFromDomain(loanID string, s domain.Schedule) *ScheduleResponse {
	return &ScheduleResponse{
		LoanID:        loanID,
		EMI:           s.EMI(),
		TotalInterest: s.TotalInterest(),
		TotalPayable:  s.TotalPayable(),
		Installments:  InstallmentsFromDomain(s.Rows()),
	}
}

// ScheduleFromQuote converts an EMI calculator result to a response.
func ScheduleFromQuote(q *usecase.EMIQuote) *ScheduleResponse {
	return &ScheduleResponse{
		EMI:           q.EMI,
		TotalInterest: q.TotalInterest,
		TotalPayable:  q.TotalPayable,
		Installments:  InstallmentsFromDomain(q.Schedule),
	}
}

// InterestResponse is the interest calculator result.
type InterestResponse struct {
	MonthlyInterest decimal.Decimal `json:"monthly_interest"`
	NextDueDate     *Date           `json:"next_due_date,omitempty"`
}

// InterestFromQuote converts an interest calculator result to a response.
func InterestFromQuote(q *usecase.InterestQuote) *InterestResponse {
	return &InterestResponse{
		MonthlyInterest: q.MonthlyInterest,
		NextDueDate:     datePtr(q.NextDueDate),
	}
}

// ReminderResponse carries the figures of the next payment of a loan.
type ReminderResponse struct {
	LoanID               string          `json:"loan_id"`
	LoanNumber           string          `json:"loan_number"`
	CustomerID           string          `json:"customer_id"`
	RepaymentType        string          `json:"repayment_type"`
	MonthlyInterest      decimal.Decimal `json:"monthly_interest"`
	EMIAmount            decimal.Decimal `json:"emi_amount"`
	AmountDue            decimal.Decimal `json:"amount_due"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal"`
	NextDueDate          Date            `json:"next_due_date"`
}

// ReminderFromDomain converts a reminder to a response.
func ReminderFromDomain(r domain.LoanReminder) *ReminderResponse {
	return &ReminderResponse{
		LoanID:               r.LoanID,
		LoanNumber:           r.LoanNumber,
		CustomerID:           r.CustomerID,
		RepaymentType:        string(r.RepaymentType),
		MonthlyInterest:      r.MonthlyInterest,
		EMIAmount:            r.EMIAmount,
		AmountDue:            r.AmountDue,
		OutstandingPrincipal: r.OutstandingPrincipal,
		NextDueDate:          NewDate(r.NextDueDate),
	}
}
