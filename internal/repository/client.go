package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arosales/prestafacil/internal/domain"
)

const clientColumns = `id, user_id, name, phone, created_at`

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, tx *sql.Tx, client *domain.Client) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO clients (id, user_id, name, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		client.ID, client.UserID, client.Name, client.Phone, client.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id,
	)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// GetByUserAndName looks a client up by the exact name a collector typed.
func (r *ClientRepository) GetByUserAndName(ctx context.Context, userID uuid.UUID, name string) (*domain.Client, error) {
	return r.getByUserAndName(ctx, r.db, userID, name)
}

// GetByUserAndNameTx is the same lookup inside a transaction; loan creation
// uses it for find-or-create.
func (r *ClientRepository) GetByUserAndNameTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, name string) (*domain.Client, error) {
	return r.getByUserAndName(ctx, tx, userID, name)
}

func (r *ClientRepository) getByUserAndName(ctx context.Context, q querier, userID uuid.UUID, name string) (*domain.Client, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = $1 AND name = $2`,
		userID, name,
	)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserAndName: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByUserAndName: %w", err)
	}
	return c, nil
}

func (r *ClientRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return clients, nil
}

func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, name string, phone *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = $1, phone = $2 WHERE id = $3`,
		name, phone, id,
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

// Delete relies on ON DELETE CASCADE to remove the client's loans,
// installments, ledger entries and notes in one statement.
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
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

func scanClient(s scanner) (*domain.Client, error) {
	var c domain.Client
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
