package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/usecase"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	CreateLoan(ctx context.Context, input usecase.CreateLoanInput) (*domain.Loan, error)
	GetLoan(ctx context.Context, shopID, id string) (*domain.Loan, error)
	ListLoans(ctx context.Context, input usecase.ListLoansInput) ([]*domain.Loan, error)
	GetSchedule(ctx context.Context, shopID, id string) (*domain.Loan, domain.Schedule, error)
	GetReminder(ctx context.Context, shopID, id string) (domain.LoanReminder, error)
	RecordPayment(ctx context.Context, input usecase.RecordPaymentInput) (*usecase.PaymentReceipt, error)
	CloseLoan(ctx context.Context, input usecase.CloseLoanInput) (*domain.Loan, error)
}

// LoanHandler handles gold loan HTTP requests.
type LoanHandler struct {
	loanUC LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanUC LoanService) *LoanHandler {
	return &LoanHandler{loanUC: loanUC}
}

// Create opens a loan.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	var req dto.CreateLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(shop)
	if err != nil {
		respondError(w, r, "invalid loan request", err)
		return
	}

	loan, err := h.loanUC.CreateLoan(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to create loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// Get retrieves a loan with its collateral and payments.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	loan, err := h.loanUC.GetLoan(r.Context(), shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// List lists loans, optionally filtered by ?status= and ?customer_id=.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	loans, err := h.loanUC.ListLoans(r.Context(), usecase.ListLoansInput{
		ShopID:     shop,
		Status:     query.Get("status"),
		CustomerID: query.Get("customer_id"),
		Limit:      parseIntQuery(r, "limit", 50),
		Offset:     parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		respondError(w, r, "failed to list loans", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListLoansResponse{
		Loans: dto.LoansFromDomain(loans),
		Total: int64(len(loans)),
	})
}

// Schedule returns the amortization schedule of an EMI loan.
func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	loan, schedule, err := h.loanUC.GetSchedule(r.Context(), shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to build schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromDomain(loan.ID, schedule))
}

// Reminder returns the amount and date of the next payment.
func (h *LoanHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	reminder, err := h.loanUC.GetReminder(r.Context(), shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "failed to prepare reminder", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReminderFromDomain(reminder))
}

// RecordPayment records money received against a loan.
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "invalid payment request", err)
		return
	}

	receipt, err := h.loanUC.RecordPayment(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentReceiptFromUseCase(receipt))
}

// Close settles a loan once its collateral has been returned.
func (h *LoanHandler) Close(w http.ResponseWriter, r *http.Request) {
	shop, ok := shopID(w, r)
	if !ok {
		return
	}

	var req dto.CloseLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(shop, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "invalid close request", err)
		return
	}

	loan, err := h.loanUC.CloseLoan(r.Context(), input)
	if err != nil {
		respondError(w, r, "failed to close loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}
