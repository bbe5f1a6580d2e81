package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/schedule"
)

// LoanDetail is everything the loan screen shows: the schedule, the cash
// history, and overdue/upcoming classification computed against an explicit
// as-of date.
type LoanDetail struct {
	Loan         *domain.Loan
	Client       *domain.Client
	Installments []domain.Installment
	Entries      []domain.LedgerEntry
	Notes        []domain.LoanNote

	OutstandingBalance decimal.Decimal
	PaidCount          int
	DailyRate          decimal.Decimal
	OverdueCount       int
	OverdueAmount      decimal.Decimal
	NextDue            *domain.Installment
}

// GetLoanDetail assembles the loan view. asOf drives the overdue and
// next-due classification; there is no ambient "today" inside the engine.
func (s *Service) GetLoanDetail(ctx context.Context, loanID uuid.UUID, asOf time.Time) (*LoanDetail, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}
	client, err := s.clients.GetByID(ctx, loan.ClientID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}
	installments, err := s.installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}
	entries, err := s.ledger.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}
	notes, err := s.notes.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}

	rate, err := DeriveDailyRate(loan, installments)
	if err != nil {
		return nil, fmt.Errorf("GetLoanDetail: %w", err)
	}

	detail := &LoanDetail{
		Loan:               loan,
		Client:             client,
		Installments:       installments,
		Entries:            entries,
		Notes:              notes,
		OutstandingBalance: decimal.Zero,
		OverdueAmount:      decimal.Zero,
		DailyRate:          rate,
	}

	today := schedule.NormalizeDate(asOf)
	for i := range installments {
		in := &installments[i]
		detail.OutstandingBalance = detail.OutstandingBalance.Add(in.Outstanding())

		if in.Status == domain.InstallmentStatusPaid {
			detail.PaidCount++
			continue
		}
		if in.DueDate.Before(today) {
			detail.OverdueCount++
			detail.OverdueAmount = detail.OverdueAmount.Add(in.Outstanding())
		} else if detail.NextDue == nil {
			detail.NextDue = in
		}
	}
	return detail, nil
}

// GetInstallmentForUser fetches an installment and verifies its loan belongs
// to one of the collector's clients.
func (s *Service) GetInstallmentForUser(ctx context.Context, installmentID, userID uuid.UUID) (*domain.Installment, error) {
	inst, err := s.installments.GetByID(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("GetInstallmentForUser: %w", err)
	}
	if _, err := s.GetLoanForUser(ctx, inst.LoanID, userID); err != nil {
		return nil, fmt.Errorf("GetInstallmentForUser: %w", err)
	}
	return inst, nil
}

// GetLoanForUser fetches a loan and verifies it belongs to one of the
// collector's clients.
func (s *Service) GetLoanForUser(ctx context.Context, loanID, userID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanForUser: %w", err)
	}
	client, err := s.clients.GetByID(ctx, loan.ClientID)
	if err != nil {
		return nil, fmt.Errorf("GetLoanForUser: %w", err)
	}
	if client.UserID != userID {
		return nil, fmt.Errorf("GetLoanForUser: %w", domain.ErrNotFound)
	}
	return loan, nil
}
