package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/auth"
	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/service"
)

type paymentService interface {
	ApplyPayment(ctx context.Context, req service.ApplyPaymentRequest) (*service.ReconcileResult, error)
	CorrectPayment(ctx context.Context, installmentID uuid.UUID, newTotalPaid decimal.Decimal) (*service.ReconcileResult, error)
	ReversePayment(ctx context.Context, installmentID uuid.UUID) (*service.ReconcileResult, error)
	QuotePayment(ctx context.Context, installmentID uuid.UUID, paymentDate time.Time) (*service.PaymentQuote, error)
	GetInstallmentForUser(ctx context.Context, installmentID, userID uuid.UUID) (*domain.Installment, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type applyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Settle bool            `json:"settle"`
}

func (r applyPaymentRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if _, err := parseDate(r.Date); err != nil {
		errs = append(errs, FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	return errs
}

type reconcileResultDTO struct {
	Installment installmentDTO `json:"installment"`
	LoanStatus  string         `json:"loan_status"`
}

func toReconcileResultDTO(res *service.ReconcileResult) reconcileResultDTO {
	return reconcileResultDTO{
		Installment: toInstallmentDTO(res.Installment),
		LoanStatus:  string(res.LoanStatus),
	}
}

// installmentOwner parses the path id and verifies the installment belongs to
// the authenticated collector.
func (h *PaymentHandler) installmentOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return uuid.Nil, false
	}

	installmentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return uuid.Nil, false
	}

	if _, err := h.payments.GetInstallmentForUser(r.Context(), installmentID, userID); err != nil {
		RespondDomainError(w, err)
		return uuid.Nil, false
	}
	return installmentID, true
}

func (h *PaymentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.installmentOwner(w, r)
	if !ok {
		return
	}

	var req applyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	date, _ := parseDate(req.Date)
	res, err := h.payments.ApplyPayment(r.Context(), service.ApplyPaymentRequest{
		InstallmentID: installmentID,
		Amount:        req.Amount,
		Date:          date,
		Settle:        req.Settle,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReconcileResultDTO(res))
}

type correctPaymentRequest struct {
	NewTotalPaid decimal.Decimal `json:"new_total_paid"`
}

func (h *PaymentHandler) Correct(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.installmentOwner(w, r)
	if !ok {
		return
	}

	var req correctPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.NewTotalPaid.IsNegative() {
		RespondValidationError(w, []FieldError{{Field: "new_total_paid", Message: "cannot be negative"}})
		return
	}

	res, err := h.payments.CorrectPayment(r.Context(), installmentID, req.NewTotalPaid)
	if err != nil {
		logging.FromContext(r.Context()).Warn("correction failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReconcileResultDTO(res))
}

func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.installmentOwner(w, r)
	if !ok {
		return
	}

	res, err := h.payments.ReversePayment(r.Context(), installmentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("reversal failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toReconcileResultDTO(res))
}

type quoteDTO struct {
	Installment   installmentDTO  `json:"installment"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	DiffDays      int             `json:"diff_days"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
	Surcharge     decimal.Decimal `json:"surcharge"`
	Discount      decimal.Decimal `json:"discount"`
	SuggestSettle bool            `json:"suggest_settle"`
}

func (h *PaymentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.installmentOwner(w, r)
	if !ok {
		return
	}

	date := asOfParam(r)
	quote, err := h.payments.QuotePayment(r.Context(), installmentID, date)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, quoteDTO{
		Installment:   toInstallmentDTO(quote.Installment),
		Outstanding:   quote.Outstanding,
		DiffDays:      quote.DiffDays,
		DailyRate:     quote.DailyRate,
		Surcharge:     quote.Surcharge,
		Discount:      quote.Discount,
		SuggestSettle: quote.SuggestSettle,
	})
}
