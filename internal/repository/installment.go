package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arosales/prestafacil/internal/domain"
)

const installmentColumns = `id, loan_id, number, due_date, original_amount,
	expected_amount, paid_amount, status, created_at, updated_at`

type InstallmentRepository struct {
	db *sql.DB
}

func NewInstallmentRepository(db *sql.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// CreateBatch inserts a loan's whole schedule inside the caller's
// transaction, so a partially scheduled loan is never visible.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, tx *sql.Tx, installments []domain.Installment) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO installments (
			id, loan_id, number, due_date, original_amount,
			expected_amount, paid_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	)
	if err != nil {
		return fmt.Errorf("CreateBatch: prepare: %w", err)
	}
	defer stmt.Close()

	for _, in := range installments {
		_, err := stmt.ExecContext(ctx,
			in.ID, in.LoanID, in.Number, in.DueDate, in.OriginalAmount,
			in.ExpectedAmount, in.PaidAmount, in.Status, in.CreatedAt, in.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("CreateBatch: installment %d: %w", in.Number, err)
		}
	}
	return nil
}

func (r *InstallmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	return r.get(ctx, r.db, id, "")
}

// GetByIDTx re-reads the installment inside the transaction, after the loan
// row lock is held, so the values cannot be stale.
func (r *InstallmentRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Installment, error) {
	return r.get(ctx, tx, id, " FOR UPDATE")
}

func (r *InstallmentRepository) get(ctx context.Context, q querier, id uuid.UUID, suffix string) (*domain.Installment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = $1`+suffix, id,
	)
	in, err := scanInstallment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get installment: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get installment: %w", err)
	}
	return in, nil
}

func (r *InstallmentRepository) Update(ctx context.Context, tx *sql.Tx, in *domain.Installment) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE installments
		SET expected_amount = $1, paid_amount = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		in.ExpectedAmount, in.PaidAmount, in.Status, in.UpdatedAt, in.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	return r.list(ctx, r.db, loanID, "")
}

// ListByLoanForUpdate locks every installment of the loan; used by refinance
// which reads all of them before closing the loan.
func (r *InstallmentRepository) ListByLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) ([]domain.Installment, error) {
	return r.list(ctx, tx, loanID, " FOR UPDATE")
}

func (r *InstallmentRepository) list(ctx context.Context, q querier, loanID uuid.UUID, suffix string) ([]domain.Installment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments
		WHERE loan_id = $1 ORDER BY number`+suffix, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var installments []domain.Installment
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("list installments: scan: %w", err)
		}
		installments = append(installments, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list installments: rows: %w", err)
	}
	return installments, nil
}

func (r *InstallmentRepository) CountUnpaid(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM installments WHERE loan_id = $1 AND status <> $2`,
		loanID, domain.InstallmentStatusPaid,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountUnpaid: %w", err)
	}
	return count, nil
}

func (r *InstallmentRepository) DeleteByLoan(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM installments WHERE loan_id = $1`, loanID,
	); err != nil {
		return fmt.Errorf("DeleteByLoan: %w", err)
	}
	return nil
}

func scanInstallment(s scanner) (*domain.Installment, error) {
	var in domain.Installment
	err := s.Scan(
		&in.ID, &in.LoanID, &in.Number, &in.DueDate, &in.OriginalAmount,
		&in.ExpectedAmount, &in.PaidAmount, &in.Status, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}
