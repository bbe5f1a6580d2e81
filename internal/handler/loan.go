package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/auth"
	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/service"
)

type loanService interface {
	CreateLoan(ctx context.Context, req service.CreateLoanRequest) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, req service.UpdateLoanRequest) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error
	CancelLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	Refinance(ctx context.Context, req service.RefinanceRequest) (*domain.Loan, error)
	GetLoanDetail(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*service.LoanDetail, error)
	GetLoanForUser(ctx context.Context, loanID, userID uuid.UUID) (*domain.Loan, error)
	AddNote(ctx context.Context, loanID uuid.UUID, body string) (*domain.LoanNote, error)
	DeleteNote(ctx context.Context, loanID, noteID uuid.UUID) error
}

type LoanHandler struct {
	loans loanService
}

func NewLoanHandler(loans loanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

type createLoanRequest struct {
	ClientName       string          `json:"client_name"`
	ClientPhone      *string         `json:"client_phone"`
	Principal        decimal.Decimal `json:"principal"`
	MonthlyRatePct   decimal.Decimal `json:"monthly_rate_pct"`
	Frequency        string          `json:"frequency"`
	InstallmentCount int             `json:"installment_count"`
	StartDate        string          `json:"start_date"`
	DailyLateFee     decimal.Decimal `json:"daily_late_fee"`
	Rounding         string          `json:"rounding"`
}

func (r createLoanRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ClientName == "" {
		errs = append(errs, FieldError{Field: "client_name", Message: "required"})
	}
	if !r.Principal.IsPositive() {
		errs = append(errs, FieldError{Field: "principal", Message: "must be greater than 0"})
	}
	if r.MonthlyRatePct.IsNegative() {
		errs = append(errs, FieldError{Field: "monthly_rate_pct", Message: "cannot be negative"})
	}
	if !domain.Frequency(r.Frequency).IsValid() {
		errs = append(errs, FieldError{Field: "frequency", Message: "must be DAILY, WEEKLY, BIWEEKLY or MONTHLY"})
	}
	if r.InstallmentCount <= 0 {
		errs = append(errs, FieldError{Field: "installment_count", Message: "must be greater than 0"})
	}
	if _, err := parseDate(r.StartDate); err != nil {
		errs = append(errs, FieldError{Field: "start_date", Message: "must be YYYY-MM-DD"})
	}
	if r.DailyLateFee.IsNegative() {
		errs = append(errs, FieldError{Field: "daily_late_fee", Message: "cannot be negative"})
	}
	if r.Rounding != "" && !domain.RoundingMode(r.Rounding).IsValid() {
		errs = append(errs, FieldError{Field: "rounding", Message: "must be exact or half_step"})
	}

	return errs
}

type loanDTO struct {
	ID               uuid.UUID       `json:"id"`
	ClientID         uuid.UUID       `json:"client_id"`
	Principal        decimal.Decimal `json:"principal"`
	MonthlyRatePct   decimal.Decimal `json:"monthly_rate_pct"`
	Frequency        string          `json:"frequency"`
	InstallmentCount int             `json:"installment_count"`
	StartDate        time.Time       `json:"start_date"`
	DailyLateFee     decimal.Decimal `json:"daily_late_fee"`
	Rounding         string          `json:"rounding"`
	Status           string          `json:"status"`
	RefinancedFrom   *uuid.UUID      `json:"refinanced_from,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func toLoanDTO(l *domain.Loan) loanDTO {
	return loanDTO{
		ID:               l.ID,
		ClientID:         l.ClientID,
		Principal:        l.Principal,
		MonthlyRatePct:   l.MonthlyRatePct,
		Frequency:        string(l.Frequency),
		InstallmentCount: l.InstallmentCount,
		StartDate:        l.StartDate,
		DailyLateFee:     l.DailyLateFee,
		Rounding:         string(l.RoundingMode),
		Status:           string(l.Status),
		RefinancedFrom:   l.RefinancedFrom,
		CreatedAt:        l.CreatedAt,
	}
}

type installmentDTO struct {
	ID             uuid.UUID       `json:"id"`
	Number         int             `json:"number"`
	DueDate        time.Time       `json:"due_date"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Status         string          `json:"status"`
}

func toInstallmentDTO(in *domain.Installment) installmentDTO {
	return installmentDTO{
		ID:             in.ID,
		Number:         in.Number,
		DueDate:        in.DueDate,
		OriginalAmount: in.OriginalAmount,
		ExpectedAmount: in.ExpectedAmount,
		PaidAmount:     in.PaidAmount,
		Status:         string(in.Status),
	}
}

type entryDTO struct {
	ID            uuid.UUID       `json:"id"`
	InstallmentID *uuid.UUID      `json:"installment_id,omitempty"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	EntryDate     time.Time       `json:"entry_date"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}

type noteDTO struct {
	ID        uuid.UUID `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type loanDetailDTO struct {
	Loan         loanDTO          `json:"loan"`
	Client       clientDTO        `json:"client"`
	Installments []installmentDTO `json:"installments"`
	Entries      []entryDTO       `json:"entries"`
	Notes        []noteDTO        `json:"notes"`

	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	PaidCount          int             `json:"paid_count"`
	DailyRate          decimal.Decimal `json:"daily_rate"`
	OverdueCount       int             `json:"overdue_count"`
	OverdueAmount      decimal.Decimal `json:"overdue_amount"`
	NextDue            *installmentDTO `json:"next_due,omitempty"`
}

func toLoanDetailDTO(d *service.LoanDetail) loanDetailDTO {
	dto := loanDetailDTO{
		Loan:               toLoanDTO(d.Loan),
		Client:             toClientDTO(d.Client),
		Installments:       make([]installmentDTO, 0, len(d.Installments)),
		Entries:            make([]entryDTO, 0, len(d.Entries)),
		Notes:              make([]noteDTO, 0, len(d.Notes)),
		OutstandingBalance: d.OutstandingBalance,
		PaidCount:          d.PaidCount,
		DailyRate:          d.DailyRate,
		OverdueCount:       d.OverdueCount,
		OverdueAmount:      d.OverdueAmount,
	}
	for i := range d.Installments {
		dto.Installments = append(dto.Installments, toInstallmentDTO(&d.Installments[i]))
	}
	for _, e := range d.Entries {
		dto.Entries = append(dto.Entries, entryDTO{
			ID:            e.ID,
			InstallmentID: e.InstallmentID,
			Kind:          string(e.Kind),
			Amount:        e.Amount,
			EntryDate:     e.EntryDate,
			Note:          e.Note,
			CreatedAt:     e.CreatedAt,
		})
	}
	for _, n := range d.Notes {
		dto.Notes = append(dto.Notes, noteDTO{ID: n.ID, Body: n.Body, CreatedAt: n.CreatedAt})
	}
	if d.NextDue != nil {
		next := toInstallmentDTO(d.NextDue)
		dto.NextDue = &next
	}
	return dto
}

func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	startDate, _ := parseDate(req.StartDate)
	rounding := domain.RoundingMode(req.Rounding)
	if req.Rounding == "" {
		rounding = domain.RoundingExact
	}

	loan, err := h.loans.CreateLoan(r.Context(), service.CreateLoanRequest{
		UserID:           userID,
		ClientName:       req.ClientName,
		ClientPhone:      req.ClientPhone,
		Principal:        req.Principal,
		MonthlyRatePct:   req.MonthlyRatePct,
		Frequency:        domain.Frequency(req.Frequency),
		InstallmentCount: req.InstallmentCount,
		StartDate:        startDate,
		DailyLateFee:     req.DailyLateFee,
		Rounding:         rounding,
	})
	if err != nil {
		log.Warn("loan creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/loans/%s", loan.ID))
	RespondSuccess(w, http.StatusCreated, toLoanDTO(loan))
}

func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	detail, err := h.loans.GetLoanDetail(r.Context(), loanID, asOfParam(r))
	if err != nil {
		logging.FromContext(r.Context()).Warn("loan lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanDetailDTO(detail))
}

type updateLoanRequest struct {
	ClientName *string `json:"client_name"`
	StartDate  *string `json:"start_date"`
}

func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req updateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	var startDate *time.Time
	if req.StartDate != nil {
		parsed, err := parseDate(*req.StartDate)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "start_date", Message: "must be YYYY-MM-DD"}})
			return
		}
		startDate = &parsed
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	loan, err := h.loans.UpdateLoan(r.Context(), service.UpdateLoanRequest{
		UserID:     userID,
		LoanID:     loanID,
		ClientName: req.ClientName,
		StartDate:  startDate,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("loan update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanDTO(loan))
}

func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	if err := h.loans.DeleteLoan(r.Context(), loanID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	loan, err := h.loans.CancelLoan(r.Context(), loanID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toLoanDTO(loan))
}

type refinanceRequest struct {
	PaidToday           decimal.Decimal `json:"paid_today"`
	ExtraCapital        decimal.Decimal `json:"extra_capital"`
	NewMonthlyRatePct   decimal.Decimal `json:"new_monthly_rate_pct"`
	NewInstallmentCount int             `json:"new_installment_count"`
	NewFrequency        string          `json:"new_frequency"`
	NewDailyLateFee     decimal.Decimal `json:"new_daily_late_fee"`
	NewRounding         string          `json:"new_rounding"`
	AsOf                string          `json:"as_of"`
}

func (r refinanceRequest) Validate() []FieldError {
	var errs []FieldError

	if r.PaidToday.IsNegative() {
		errs = append(errs, FieldError{Field: "paid_today", Message: "cannot be negative"})
	}
	if r.ExtraCapital.IsNegative() {
		errs = append(errs, FieldError{Field: "extra_capital", Message: "cannot be negative"})
	}
	if r.NewMonthlyRatePct.IsNegative() {
		errs = append(errs, FieldError{Field: "new_monthly_rate_pct", Message: "cannot be negative"})
	}
	if r.NewInstallmentCount <= 0 {
		errs = append(errs, FieldError{Field: "new_installment_count", Message: "must be greater than 0"})
	}
	if !domain.Frequency(r.NewFrequency).IsValid() {
		errs = append(errs, FieldError{Field: "new_frequency", Message: "must be DAILY, WEEKLY, BIWEEKLY or MONTHLY"})
	}
	if r.NewDailyLateFee.IsNegative() {
		errs = append(errs, FieldError{Field: "new_daily_late_fee", Message: "cannot be negative"})
	}
	if r.NewRounding != "" && !domain.RoundingMode(r.NewRounding).IsValid() {
		errs = append(errs, FieldError{Field: "new_rounding", Message: "must be exact or half_step"})
	}
	if _, err := parseDate(r.AsOf); err != nil {
		errs = append(errs, FieldError{Field: "as_of", Message: "must be YYYY-MM-DD"})
	}

	return errs
}

func (h *LoanHandler) Refinance(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req refinanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	asOf, _ := parseDate(req.AsOf)
	rounding := domain.RoundingMode(req.NewRounding)
	if req.NewRounding == "" {
		rounding = domain.RoundingExact
	}

	successor, err := h.loans.Refinance(r.Context(), service.RefinanceRequest{
		LoanID:              loanID,
		PaidToday:           req.PaidToday,
		ExtraCapital:        req.ExtraCapital,
		NewMonthlyRatePct:   req.NewMonthlyRatePct,
		NewInstallmentCount: req.NewInstallmentCount,
		NewFrequency:        domain.Frequency(req.NewFrequency),
		NewDailyLateFee:     req.NewDailyLateFee,
		NewRounding:         rounding,
		AsOf:                asOf,
	})
	if err != nil {
		log.Warn("refinance failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/loans/%s", successor.ID))
	RespondSuccess(w, http.StatusCreated, toLoanDTO(successor))
}

type addNoteRequest struct {
	Body string `json:"body"`
}

func (h *LoanHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req addNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Body == "" {
		RespondValidationError(w, []FieldError{{Field: "body", Message: "required"}})
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	note, err := h.loans.AddNote(r.Context(), loanID, req.Body)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, noteDTO{ID: note.ID, Body: note.Body, CreatedAt: note.CreatedAt})
}

func (h *LoanHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}
	noteID, err := uuid.Parse(r.PathValue("noteID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if _, err := h.loans.GetLoanForUser(r.Context(), loanID, userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	if err := h.loans.DeleteNote(r.Context(), loanID, noteID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// asOfParam reads the as_of query parameter, defaulting to now. Reporting
// endpoints take the reference date from the caller.
func asOfParam(r *http.Request) time.Time {
	if s := r.URL.Query().Get("as_of"); s != "" {
		if t, err := parseDate(s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
