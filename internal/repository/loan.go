package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
)

const loanColumns = `id, client_id, principal, monthly_rate_pct, frequency,
	installment_count, start_date, daily_late_fee, rounding_mode, status,
	refinanced_from, created_at`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, tx *sql.Tx, loan *domain.Loan) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO loans (
			id, client_id, principal, monthly_rate_pct, frequency,
			installment_count, start_date, daily_late_fee, rounding_mode, status,
			refinanced_from, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		loan.ID, loan.ClientID, loan.Principal, loan.MonthlyRatePct, loan.Frequency,
		loan.InstallmentCount, loan.StartDate, loan.DailyLateFee, loan.RoundingMode,
		loan.Status, loan.RefinancedFrom, loan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

// GetForUpdate locks the loan row for the duration of the transaction. Every
// mutating operation takes this lock first, which serializes writes per loan.
func (r *LoanRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.LoanStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LoanRepository) UpdateTerms(ctx context.Context, tx *sql.Tx, id uuid.UUID, clientID uuid.UUID, startDate time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE loans SET client_id = $1, start_date = $2 WHERE id = $3`,
		clientID, startDate, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateTerms: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateTerms: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateTerms: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LoanRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LoanRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE client_id = $1 ORDER BY created_at DESC`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByClient: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByClient: scan: %w", err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByClient: rows: %w", err)
	}
	return loans, nil
}

// SumPrincipal totals disbursed capital for a collector's loans, optionally
// restricted to loans started within [from, to).
func (r *LoanRepository) SumPrincipal(ctx context.Context, userID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(l.principal), 0)
		FROM loans l JOIN clients c ON c.id = l.client_id
		WHERE c.user_id = $1`
	args := []any{userID}
	if from != nil && to != nil {
		query += ` AND l.start_date >= $2 AND l.start_date < $3`
		args = append(args, *from, *to)
	}

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("SumPrincipal: %w", err)
	}
	return sum, nil
}

func scanLoan(s scanner) (*domain.Loan, error) {
	var l domain.Loan
	err := s.Scan(
		&l.ID, &l.ClientID, &l.Principal, &l.MonthlyRatePct, &l.Frequency,
		&l.InstallmentCount, &l.StartDate, &l.DailyLateFee, &l.RoundingMode,
		&l.Status, &l.RefinancedFrom, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
