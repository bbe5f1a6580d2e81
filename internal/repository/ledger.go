package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
)

const ledgerColumns = `id, loan_id, installment_id, kind, amount, entry_date,
	note, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create appends an entry inside the caller's transaction. Entries are never
// updated or deleted individually; corrections are new entries.
func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, loan_id, installment_id, kind, amount, entry_date, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.LoanID, entry.InstallmentID, entry.Kind,
		entry.Amount, entry.EntryDate, entry.Note, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *LedgerRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE loan_id = $1 ORDER BY created_at DESC`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByLoan: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByLoan: scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByLoan: rows: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE loan_id = $1`,
		loanID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByLoan: %w", err)
	}
	return sum, nil
}

// SumCollected totals all cash movement across a collector's loans,
// optionally restricted to entries dated within [from, to).
func (r *LedgerRepository) SumCollected(ctx context.Context, userID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(e.amount), 0)
		FROM ledger_entries e
		JOIN loans l ON l.id = e.loan_id
		JOIN clients c ON c.id = l.client_id
		WHERE c.user_id = $1`
	args := []any{userID}
	if from != nil && to != nil {
		query += ` AND e.entry_date >= $2 AND e.entry_date < $3`
		args = append(args, *from, *to)
	}

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("SumCollected: %w", err)
	}
	return sum, nil
}

func (r *LedgerRepository) DeleteByLoan(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE loan_id = $1`, loanID,
	); err != nil {
		return fmt.Errorf("DeleteByLoan: %w", err)
	}
	return nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.LoanID, &e.InstallmentID, &e.Kind,
		&e.Amount, &e.EntryDate, &e.Note, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
