package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/arosales/prestafacil/internal/domain"
)

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Create(ctx context.Context, note *domain.LoanNote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loan_notes (id, loan_id, body, created_at)
		VALUES ($1, $2, $3, $4)`,
		note.ID, note.LoanID, note.Body, note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *NoteRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.LoanNote, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, loan_id, body, created_at FROM loan_notes
		WHERE loan_id = $1 ORDER BY created_at DESC`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByLoan: %w", err)
	}
	defer rows.Close()

	var notes []domain.LoanNote
	for rows.Next() {
		var n domain.LoanNote
		if err := rows.Scan(&n.ID, &n.LoanID, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByLoan: scan: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByLoan: rows: %w", err)
	}
	return notes, nil
}

// Delete is scoped to the loan so a note id from another loan never matches.
func (r *NoteRepository) Delete(ctx context.Context, loanID, noteID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM loan_notes WHERE id = $1 AND loan_id = $2`, noteID, loanID,
	)
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
