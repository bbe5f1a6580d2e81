package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arosales/prestafacil/internal/domain"
)

func TestCreateLoanRequestValidate(t *testing.T) {
	valid := createLoanRequest{
		ClientName:       "Maria",
		Principal:        decimal.RequireFromString("1000"),
		MonthlyRatePct:   decimal.RequireFromString("10"),
		Frequency:        "MONTHLY",
		InstallmentCount: 3,
		StartDate:        "2026-01-01",
		Rounding:         "half_step",
	}
	assert.Empty(t, valid.Validate())

	tests := []struct {
		name      string
		mutate    func(*createLoanRequest)
		wantField string
	}{
		{"missing client name", func(r *createLoanRequest) { r.ClientName = "" }, "client_name"},
		{"zero principal", func(r *createLoanRequest) { r.Principal = decimal.Zero }, "principal"},
		{"negative rate", func(r *createLoanRequest) { r.MonthlyRatePct = decimal.RequireFromString("-1") }, "monthly_rate_pct"},
		{"bad frequency", func(r *createLoanRequest) { r.Frequency = "YEARLY" }, "frequency"},
		{"zero installments", func(r *createLoanRequest) { r.InstallmentCount = 0 }, "installment_count"},
		{"bad start date", func(r *createLoanRequest) { r.StartDate = "01/02/2026" }, "start_date"},
		{"negative late fee", func(r *createLoanRequest) { r.DailyLateFee = decimal.RequireFromString("-2") }, "daily_late_fee"},
		{"bad rounding", func(r *createLoanRequest) { r.Rounding = "bankers" }, "rounding"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			fields := req.Validate()
			require.Len(t, fields, 1)
			assert.Equal(t, tc.wantField, fields[0].Field)
		})
	}
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{domain.ErrInvalidTerms, http.StatusBadRequest, "INVALID_TERMS"},
		{domain.ErrInstallmentSettled, http.StatusUnprocessableEntity, "INSTALLMENT_SETTLED"},
		{domain.ErrLoanTerminal, http.StatusUnprocessableEntity, "LOAN_TERMINAL"},
		{domain.ErrNegativePrincipal, http.StatusUnprocessableEntity, "NEGATIVE_PRINCIPAL"},
		{domain.ErrNothingToReverse, http.StatusUnprocessableEntity, "NOTHING_TO_REVERSE"},
		{domain.ErrScheduleLocked, http.StatusUnprocessableEntity, "SCHEDULE_LOCKED"},
		{domain.ErrDuplicateClient, http.StatusConflict, "DUPLICATE_CLIENT"},
		{domain.ErrUserExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	}

	for _, tc := range tests {
		t.Run(tc.wantCode, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondDomainError(rec, fmt.Errorf("Op: %w", tc.err))

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestAsOfParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/cashbox?as_of=2026-03-15", nil)
	got := asOfParam(r)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 3, int(got.Month()))
	assert.Equal(t, 15, got.Day())
}
