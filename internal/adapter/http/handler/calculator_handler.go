package handler

import (
	"net/http"

	"github.com/iho/khata/internal/adapter/http/dto"
	"github.com/iho/khata/internal/usecase"
)

// CalculatorHandler runs the loan engines on prospective terms. Nothing is
// persisted.
type CalculatorHandler struct{}

// NewCalculatorHandler creates a new CalculatorHandler.
func NewCalculatorHandler() *CalculatorHandler {
	return &CalculatorHandler{}
}

// EMI returns the installment and schedule for the requested terms.
func (h *CalculatorHandler) EMI(w http.ResponseWriter, r *http.Request) {
	var req dto.EMICalculatorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		respondError(w, r, "invalid EMI request", err)
		return
	}

	quote, err := usecase.QuoteEMI(input)
	if err != nil {
		respondError(w, r, "failed to calculate EMI", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromQuote(quote))
}

// Interest returns the monthly simple interest for the requested terms.
func (h *CalculatorHandler) Interest(w http.ResponseWriter, r *http.Request) {
	var req dto.InterestCalculatorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		respondError(w, r, "invalid interest request", err)
		return
	}

	quote, err := usecase.QuoteInterest(input)
	if err != nil {
		respondError(w, r, "failed to calculate interest", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InterestFromQuote(quote))
}
