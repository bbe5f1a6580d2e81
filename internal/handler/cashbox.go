package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/auth"
	"github.com/arosales/prestafacil/internal/service"
)

type cashBoxService interface {
	GetCashBox(ctx context.Context, userID uuid.UUID, asOf time.Time) (*service.CashBoxSummary, error)
}

type CashBoxHandler struct {
	cashbox cashBoxService
}

func NewCashBoxHandler(cashbox cashBoxService) *CashBoxHandler {
	return &CashBoxHandler{cashbox: cashbox}
}

type cashBoxDTO struct {
	TotalLent      decimal.Decimal `json:"total_lent"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	DemandableDebt decimal.Decimal `json:"demandable_debt"`
	MonthInflow    decimal.Decimal `json:"month_inflow"`
	MonthOutflow   decimal.Decimal `json:"month_outflow"`
	MonthNetFlow   decimal.Decimal `json:"month_net_flow"`
}

func (h *CashBoxHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	summary, err := h.cashbox.GetCashBox(r.Context(), userID, asOfParam(r))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, cashBoxDTO{
		TotalLent:      summary.TotalLent,
		TotalCollected: summary.TotalCollected,
		DemandableDebt: summary.DemandableDebt,
		MonthInflow:    summary.MonthInflow,
		MonthOutflow:   summary.MonthOutflow,
		MonthNetFlow:   summary.MonthNetFlow,
	})
}
