package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/schedule"
)

type ApplyPaymentRequest struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	// Settle writes off whatever remains after this payment: the expected
	// amount is lowered to the new paid total and the installment closes.
	Settle bool
}

// ReconcileResult reports where the installment and its loan ended up after
// a mutation.
type ReconcileResult struct {
	Installment *domain.Installment
	LoanStatus  domain.LoanStatus
}

// ApplyPayment records a cash collection against one installment: it appends
// the ledger entry, moves the installment's paid total, applies the optional
// write-off and cascades the loan to FINISHED once nothing unpaid remains.
// All of it commits atomically under the loan lock.
func (s *Service) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ReconcileResult, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("ApplyPayment: %w", domain.ErrInvalidAmount)
	}

	tx, loan, inst, err := s.lockInstallment(ctx, req.InstallmentID)
	if err != nil {
		return nil, fmt.Errorf("ApplyPayment: %w", err)
	}
	defer tx.Rollback()

	if loan.Status.Terminal() {
		return nil, fmt.Errorf("ApplyPayment: %w", domain.ErrLoanTerminal)
	}
	if inst.Status == domain.InstallmentStatusPaid {
		return nil, fmt.Errorf("ApplyPayment: %w", domain.ErrInstallmentSettled)
	}

	newPaid := inst.PaidAmount.Add(req.Amount)
	note := fmt.Sprintf("payment on installment #%d", inst.Number)

	// The settlement write-off is the only path that lowers the expected
	// amount. It never drops below what has been paid.
	if req.Settle && newPaid.LessThan(inst.ExpectedAmount) {
		note = fmt.Sprintf("installment #%d settled with write-off (expected lowered from %s to %s)",
			inst.Number, inst.ExpectedAmount, newPaid)
		inst.ExpectedAmount = newPaid
	}

	inst.PaidAmount = newPaid
	inst.Status = domain.InstallmentStatusPending
	if inst.FullyPaid() {
		inst.Status = domain.InstallmentStatusPaid
	}
	inst.UpdatedAt = time.Now().UTC()

	if err := s.appendEntry(ctx, tx, loan.ID, inst.ID, domain.EntryKindInstallmentPayment, req.Amount, req.Date, note); err != nil {
		return nil, fmt.Errorf("ApplyPayment: %w", err)
	}
	if err := s.installments.Update(ctx, tx, inst); err != nil {
		return nil, fmt.Errorf("ApplyPayment: %w", err)
	}

	loanStatus, err := s.cascadeLoanStatus(ctx, tx, loan)
	if err != nil {
		return nil, fmt.Errorf("ApplyPayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ApplyPayment: commit: %w", err)
	}

	logging.FromContext(ctx).Info("payment applied",
		"loan_id", loan.ID,
		"installment", inst.Number,
		"amount", req.Amount,
		"settle", req.Settle,
		"installment_status", inst.Status,
		"loan_status", loanStatus,
	)
	return &ReconcileResult{Installment: inst, LoanStatus: loanStatus}, nil
}

// CorrectPayment rewrites an installment's paid total to the given value by
// appending a signed CORRECTION entry for the difference. The expected
// amount is untouched; the installment status is recomputed against it.
func (s *Service) CorrectPayment(ctx context.Context, installmentID uuid.UUID, newTotalPaid decimal.Decimal) (*ReconcileResult, error) {
	if newTotalPaid.IsNegative() {
		return nil, fmt.Errorf("CorrectPayment: %w", domain.ErrInvalidAmount)
	}

	tx, loan, inst, err := s.lockInstallment(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("CorrectPayment: %w", err)
	}
	defer tx.Rollback()

	delta := newTotalPaid.Sub(inst.PaidAmount)
	if delta.IsZero() {
		return &ReconcileResult{Installment: inst, LoanStatus: loan.Status}, nil
	}

	note := fmt.Sprintf("manual correction on installment #%d: paid %s -> %s",
		inst.Number, inst.PaidAmount, newTotalPaid)

	inst.PaidAmount = newTotalPaid
	inst.Status = domain.InstallmentStatusPending
	if inst.FullyPaid() {
		inst.Status = domain.InstallmentStatusPaid
	}
	inst.UpdatedAt = time.Now().UTC()

	if err := s.appendEntry(ctx, tx, loan.ID, inst.ID, domain.EntryKindCorrection, delta, time.Now().UTC(), note); err != nil {
		return nil, fmt.Errorf("CorrectPayment: %w", err)
	}
	if err := s.installments.Update(ctx, tx, inst); err != nil {
		return nil, fmt.Errorf("CorrectPayment: %w", err)
	}

	loanStatus, err := s.cascadeLoanStatus(ctx, tx, loan)
	if err != nil {
		return nil, fmt.Errorf("CorrectPayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CorrectPayment: commit: %w", err)
	}

	logging.FromContext(ctx).Info("payment corrected",
		"loan_id", loan.ID,
		"installment", inst.Number,
		"delta", delta,
		"installment_status", inst.Status,
		"loan_status", loanStatus,
	)
	return &ReconcileResult{Installment: inst, LoanStatus: loanStatus}, nil
}

// ReversePayment undoes all collections on one installment: a REVERSAL
// entry for the negated paid total keeps the ledger sum matching the paid
// sums, the installment reopens, and a FINISHED loan flips back to ACTIVE.
func (s *Service) ReversePayment(ctx context.Context, installmentID uuid.UUID) (*ReconcileResult, error) {
	tx, loan, inst, err := s.lockInstallment(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("ReversePayment: %w", err)
	}
	defer tx.Rollback()

	if inst.PaidAmount.IsZero() {
		return nil, fmt.Errorf("ReversePayment: %w", domain.ErrNothingToReverse)
	}

	note := fmt.Sprintf("reversal: voided payments on installment #%d", inst.Number)
	reversed := inst.PaidAmount.Neg()

	inst.PaidAmount = decimal.Zero
	inst.Status = domain.InstallmentStatusPending
	inst.UpdatedAt = time.Now().UTC()

	if err := s.appendEntry(ctx, tx, loan.ID, inst.ID, domain.EntryKindReversal, reversed, time.Now().UTC(), note); err != nil {
		return nil, fmt.Errorf("ReversePayment: %w", err)
	}
	if err := s.installments.Update(ctx, tx, inst); err != nil {
		return nil, fmt.Errorf("ReversePayment: %w", err)
	}

	loanStatus, err := s.cascadeLoanStatus(ctx, tx, loan)
	if err != nil {
		return nil, fmt.Errorf("ReversePayment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReversePayment: commit: %w", err)
	}

	logging.FromContext(ctx).Info("payment reversed",
		"loan_id", loan.ID,
		"installment", inst.Number,
		"amount", reversed,
		"loan_status", loanStatus,
	)
	return &ReconcileResult{Installment: inst, LoanStatus: loanStatus}, nil
}

// lockInstallment resolves the installment's loan, opens a transaction and
// takes the loan row lock before re-reading the installment, so every
// mutation on the same loan is serialized.
func (s *Service) lockInstallment(ctx context.Context, installmentID uuid.UUID) (*sql.Tx, *domain.Loan, *domain.Installment, error) {
	stale, err := s.installments.GetByID(ctx, installmentID)
	if err != nil {
		return nil, nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("begin tx: %w", err)
	}

	loan, err := s.loans.GetForUpdate(ctx, tx, stale.LoanID)
	if err != nil {
		tx.Rollback()
		return nil, nil, nil, err
	}

	inst, err := s.installments.GetByIDTx(ctx, tx, installmentID)
	if err != nil {
		tx.Rollback()
		return nil, nil, nil, err
	}

	return tx, loan, inst, nil
}

// cascadeLoanStatus recomputes the loan status after an installment
// mutation. FINISHED when nothing unpaid remains, ACTIVE when something
// reopened; REFINANCED and CANCELED are terminal and never touched.
func (s *Service) cascadeLoanStatus(ctx context.Context, tx *sql.Tx, loan *domain.Loan) (domain.LoanStatus, error) {
	if loan.Status.Terminal() {
		return loan.Status, nil
	}

	unpaid, err := s.installments.CountUnpaid(ctx, tx, loan.ID)
	if err != nil {
		return loan.Status, err
	}

	target := domain.LoanStatusActive
	if unpaid == 0 {
		target = domain.LoanStatusFinished
	}
	if target == loan.Status {
		return loan.Status, nil
	}

	if err := s.loans.UpdateStatus(ctx, tx, loan.ID, target); err != nil {
		return loan.Status, err
	}
	return target, nil
}

func (s *Service) appendEntry(ctx context.Context, tx *sql.Tx, loanID, installmentID uuid.UUID, kind domain.EntryKind, amount decimal.Decimal, date time.Time, note string) error {
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		LoanID:        loanID,
		InstallmentID: &installmentID,
		Kind:          kind,
		Amount:        amount,
		EntryDate:     schedule.NormalizeDate(date),
		Note:          note,
		CreatedAt:     time.Now().UTC(),
	}
	return s.ledger.Create(ctx, tx, entry)
}
