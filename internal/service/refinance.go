package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/schedule"
)

type RefinanceRequest struct {
	LoanID uuid.UUID
	// PaidToday is cash the client hands over at the refinance table; it is
	// recorded on the source loan so the cash box still balances.
	PaidToday    decimal.Decimal
	ExtraCapital decimal.Decimal

	NewMonthlyRatePct   decimal.Decimal
	NewInstallmentCount int
	NewFrequency        domain.Frequency
	NewDailyLateFee     decimal.Decimal
	NewRounding         domain.RoundingMode

	// AsOf is the start date of the successor loan. Callers pass it
	// explicitly; the engine never reads the clock for schedule math.
	AsOf time.Time
}

// Refinance closes a loan and issues a successor over its outstanding
// balance. The source loan is marked REFINANCED, the successor schedule is
// generated over (balance - paidToday + extraCapital), and the bridging cash
// entry lands on the source loan. Everything commits in one transaction.
func (s *Service) Refinance(ctx context.Context, req RefinanceRequest) (*domain.Loan, error) {
	if req.PaidToday.IsNegative() || req.ExtraCapital.IsNegative() {
		return nil, fmt.Errorf("Refinance: %w", domain.ErrInvalidAmount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Refinance: begin tx: %w", err)
	}
	defer tx.Rollback()

	source, err := s.loans.GetForUpdate(ctx, tx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}
	if source.Status.Terminal() {
		return nil, fmt.Errorf("Refinance: %w", domain.ErrLoanTerminal)
	}

	installments, err := s.installments.ListByLoanForUpdate(ctx, tx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	// Per-installment remainders are clamped at zero: overpaying one
	// installment never discounts another.
	balance := decimal.Zero
	for i := range installments {
		balance = balance.Add(installments[i].Outstanding())
	}

	newPrincipal := balance.Sub(req.PaidToday).Add(req.ExtraCapital)
	if !newPrincipal.IsPositive() {
		return nil, fmt.Errorf("Refinance: balance %s, paid today %s: %w",
			balance, req.PaidToday, domain.ErrNegativePrincipal)
	}

	plan, err := schedule.Generate(schedule.Terms{
		Principal:        newPrincipal,
		MonthlyRatePct:   req.NewMonthlyRatePct,
		Frequency:        req.NewFrequency,
		InstallmentCount: req.NewInstallmentCount,
		StartDate:        req.AsOf,
		Rounding:         req.NewRounding,
	})
	if err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	if err := s.loans.UpdateStatus(ctx, tx, source.ID, domain.LoanStatusRefinanced); err != nil {
		return nil, fmt.Errorf("Refinance: %w", err)
	}

	now := time.Now().UTC()
	successor := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         source.ClientID,
		Principal:        newPrincipal,
		MonthlyRatePct:   req.NewMonthlyRatePct,
		Frequency:        req.NewFrequency,
		InstallmentCount: req.NewInstallmentCount,
		StartDate:        schedule.NormalizeDate(req.AsOf),
		DailyLateFee:     req.NewDailyLateFee,
		RoundingMode:     req.NewRounding,
		Status:           domain.LoanStatusActive,
		RefinancedFrom:   &source.ID,
		CreatedAt:        now,
	}
	if err := s.loans.Create(ctx, tx, successor); err != nil {
		return nil, fmt.Errorf("Refinance: create successor: %w", err)
	}
	if err := s.installments.CreateBatch(ctx, tx, buildInstallments(successor.ID, plan, now)); err != nil {
		return nil, fmt.Errorf("Refinance: create installments: %w", err)
	}

	if req.PaidToday.IsPositive() {
		entry := &domain.LedgerEntry{
			ID:        uuid.New(),
			LoanID:    source.ID,
			Kind:      domain.EntryKindRefinanceBridge,
			Amount:    req.PaidToday,
			EntryDate: schedule.NormalizeDate(req.AsOf),
			Note:      fmt.Sprintf("initial payment on refinance into loan %s", successor.ID),
			CreatedAt: now,
		}
		if err := s.ledger.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("Refinance: bridge entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Refinance: commit: %w", err)
	}

	logging.FromContext(ctx).Info("loan refinanced",
		"source_loan_id", source.ID,
		"new_loan_id", successor.ID,
		"outstanding_balance", balance,
		"paid_today", req.PaidToday,
		"extra_capital", req.ExtraCapital,
		"new_principal", newPrincipal,
	)
	return successor, nil
}
