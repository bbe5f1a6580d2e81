package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/schedule"
)

type CreateLoanRequest struct {
	UserID           uuid.UUID
	ClientName       string
	ClientPhone      *string
	Principal        decimal.Decimal
	MonthlyRatePct   decimal.Decimal
	Frequency        domain.Frequency
	InstallmentCount int
	StartDate        time.Time
	DailyLateFee     decimal.Decimal
	Rounding         domain.RoundingMode
}

// CreateLoan generates the schedule and persists the loan together with its
// full installment set in one transaction. The client is found by name or
// created on the fly, matching how the loan form works.
func (s *Service) CreateLoan(ctx context.Context, req CreateLoanRequest) (*domain.Loan, error) {
	if req.ClientName == "" {
		return nil, fmt.Errorf("CreateLoan: client name required: %w", domain.ErrInvalidTerms)
	}
	if req.DailyLateFee.IsNegative() {
		return nil, fmt.Errorf("CreateLoan: daily late fee cannot be negative: %w", domain.ErrInvalidTerms)
	}

	plan, err := schedule.Generate(schedule.Terms{
		Principal:        req.Principal,
		MonthlyRatePct:   req.MonthlyRatePct,
		Frequency:        req.Frequency,
		InstallmentCount: req.InstallmentCount,
		StartDate:        req.StartDate,
		Rounding:         req.Rounding,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateLoan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	client, err := s.clients.GetByUserAndNameTx(ctx, tx, req.UserID, req.ClientName)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("CreateLoan: %w", err)
		}
		client = &domain.Client{
			ID:        uuid.New(),
			UserID:    req.UserID,
			Name:      req.ClientName,
			Phone:     req.ClientPhone,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.clients.Create(ctx, tx, client); err != nil {
			return nil, fmt.Errorf("CreateLoan: create client: %w", err)
		}
	}

	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:               uuid.New(),
		ClientID:         client.ID,
		Principal:        req.Principal,
		MonthlyRatePct:   req.MonthlyRatePct,
		Frequency:        req.Frequency,
		InstallmentCount: req.InstallmentCount,
		StartDate:        schedule.NormalizeDate(req.StartDate),
		DailyLateFee:     req.DailyLateFee,
		RoundingMode:     req.Rounding,
		Status:           domain.LoanStatusActive,
		CreatedAt:        now,
	}
	if err := s.loans.Create(ctx, tx, loan); err != nil {
		return nil, fmt.Errorf("CreateLoan: create loan: %w", err)
	}

	if err := s.installments.CreateBatch(ctx, tx, buildInstallments(loan.ID, plan, now)); err != nil {
		return nil, fmt.Errorf("CreateLoan: create installments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateLoan: commit: %w", err)
	}

	logging.FromContext(ctx).Info("loan created",
		"loan_id", loan.ID,
		"client_id", client.ID,
		"principal", req.Principal,
		"installments", req.InstallmentCount,
		"frequency", req.Frequency,
	)
	return loan, nil
}

func buildInstallments(loanID uuid.UUID, plan *schedule.Plan, now time.Time) []domain.Installment {
	installments := make([]domain.Installment, 0, len(plan.Installments))
	for _, p := range plan.Installments {
		installments = append(installments, domain.Installment{
			ID:             uuid.New(),
			LoanID:         loanID,
			Number:         p.Number,
			DueDate:        p.DueDate,
			OriginalAmount: p.Amount,
			ExpectedAmount: p.Amount,
			PaidAmount:     decimal.Zero,
			Status:         domain.InstallmentStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return installments
}

// DeleteLoan removes the loan, its schedule and its ledger entries together.
// Either everything goes or nothing does.
func (s *Service) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.loans.GetForUpdate(ctx, tx, loanID); err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}

	if err := s.ledger.DeleteByLoan(ctx, tx, loanID); err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}
	if err := s.installments.DeleteByLoan(ctx, tx, loanID); err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}
	if err := s.loans.Delete(ctx, tx, loanID); err != nil {
		return fmt.Errorf("DeleteLoan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteLoan: commit: %w", err)
	}

	logging.FromContext(ctx).Info("loan deleted", "loan_id", loanID)
	return nil
}

// CancelLoan marks the loan CANCELED. Like REFINANCED, the status is
// terminal and reconciliation never overrides it.
func (s *Service) CancelLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CancelLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, fmt.Errorf("CancelLoan: %w", err)
	}
	if loan.Status.Terminal() {
		return nil, fmt.Errorf("CancelLoan: %w", domain.ErrLoanTerminal)
	}

	if err := s.loans.UpdateStatus(ctx, tx, loanID, domain.LoanStatusCanceled); err != nil {
		return nil, fmt.Errorf("CancelLoan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CancelLoan: commit: %w", err)
	}

	loan.Status = domain.LoanStatusCanceled
	return loan, nil
}

type UpdateLoanRequest struct {
	UserID     uuid.UUID
	LoanID     uuid.UUID
	ClientName *string
	StartDate  *time.Time
}

// UpdateLoan reassigns the loan to an existing client and/or moves the start
// date. Moving the start date regenerates the schedule from the original
// terms, which is only allowed while no installment has been paid.
func (s *Service) UpdateLoan(ctx context.Context, req UpdateLoanRequest) (*domain.Loan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("UpdateLoan: begin tx: %w", err)
	}
	defer tx.Rollback()

	loan, err := s.loans.GetForUpdate(ctx, tx, req.LoanID)
	if err != nil {
		return nil, fmt.Errorf("UpdateLoan: %w", err)
	}
	if loan.Status.Terminal() {
		return nil, fmt.Errorf("UpdateLoan: %w", domain.ErrLoanTerminal)
	}

	clientID := loan.ClientID
	if req.ClientName != nil {
		client, err := s.clients.GetByUserAndNameTx(ctx, tx, req.UserID, *req.ClientName)
		if err != nil {
			return nil, fmt.Errorf("UpdateLoan: client lookup: %w", err)
		}
		clientID = client.ID
	}

	startDate := loan.StartDate
	if req.StartDate != nil {
		newStart := schedule.NormalizeDate(*req.StartDate)
		if !newStart.Equal(loan.StartDate) {
			installments, err := s.installments.ListByLoanForUpdate(ctx, tx, loan.ID)
			if err != nil {
				return nil, fmt.Errorf("UpdateLoan: %w", err)
			}
			for _, in := range installments {
				if in.Status == domain.InstallmentStatusPaid || in.PaidAmount.IsPositive() {
					return nil, fmt.Errorf("UpdateLoan: %w", domain.ErrScheduleLocked)
				}
			}

			plan, err := schedule.Generate(schedule.Terms{
				Principal:        loan.Principal,
				MonthlyRatePct:   loan.MonthlyRatePct,
				Frequency:        loan.Frequency,
				InstallmentCount: loan.InstallmentCount,
				StartDate:        newStart,
				Rounding:         loan.RoundingMode,
			})
			if err != nil {
				return nil, fmt.Errorf("UpdateLoan: %w", err)
			}

			if err := s.installments.DeleteByLoan(ctx, tx, loan.ID); err != nil {
				return nil, fmt.Errorf("UpdateLoan: %w", err)
			}
			if err := s.installments.CreateBatch(ctx, tx, buildInstallments(loan.ID, plan, time.Now().UTC())); err != nil {
				return nil, fmt.Errorf("UpdateLoan: %w", err)
			}
			startDate = newStart
		}
	}

	if err := s.loans.UpdateTerms(ctx, tx, loan.ID, clientID, startDate); err != nil {
		return nil, fmt.Errorf("UpdateLoan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("UpdateLoan: commit: %w", err)
	}

	loan.ClientID = clientID
	loan.StartDate = startDate
	return loan, nil
}
