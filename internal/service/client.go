package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/logging"
)

func (s *Service) ListClients(ctx context.Context, userID uuid.UUID) ([]domain.Client, error) {
	clients, err := s.clients.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListClients: %w", err)
	}
	return clients, nil
}

func (s *Service) GetClientForUser(ctx context.Context, clientID, userID uuid.UUID) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("GetClientForUser: %w", err)
	}
	if client.UserID != userID {
		return nil, fmt.Errorf("GetClientForUser: %w", domain.ErrNotFound)
	}
	return client, nil
}

func (s *Service) ListClientLoans(ctx context.Context, clientID, userID uuid.UUID) ([]domain.Loan, error) {
	if _, err := s.GetClientForUser(ctx, clientID, userID); err != nil {
		return nil, fmt.Errorf("ListClientLoans: %w", err)
	}
	loans, err := s.loans.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("ListClientLoans: %w", err)
	}
	return loans, nil
}

// UpdateClient renames a client, refusing names already used by another of
// the collector's clients.
func (s *Service) UpdateClient(ctx context.Context, clientID, userID uuid.UUID, name string, phone *string) (*domain.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("UpdateClient: name required: %w", domain.ErrInvalidRequest)
	}

	client, err := s.GetClientForUser(ctx, clientID, userID)
	if err != nil {
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}

	other, err := s.clients.GetByUserAndName(ctx, userID, name)
	switch {
	case err == nil && other.ID != client.ID:
		return nil, fmt.Errorf("UpdateClient: %w", domain.ErrDuplicateClient)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}

	if err := s.clients.Update(ctx, clientID, name, phone); err != nil {
		return nil, fmt.Errorf("UpdateClient: %w", err)
	}

	client.Name = name
	client.Phone = phone
	return client, nil
}

// DeleteClient removes the client and, through cascading foreign keys, all
// their loans, installments, ledger entries and notes.
func (s *Service) DeleteClient(ctx context.Context, clientID, userID uuid.UUID) error {
	if _, err := s.GetClientForUser(ctx, clientID, userID); err != nil {
		return fmt.Errorf("DeleteClient: %w", err)
	}
	if err := s.clients.Delete(ctx, clientID); err != nil {
		return fmt.Errorf("DeleteClient: %w", err)
	}
	logging.FromContext(ctx).Info("client deleted", "client_id", clientID)
	return nil
}

func (s *Service) AddNote(ctx context.Context, loanID uuid.UUID, body string) (*domain.LoanNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("AddNote: empty note: %w", domain.ErrInvalidRequest)
	}
	if _, err := s.loans.GetByID(ctx, loanID); err != nil {
		return nil, fmt.Errorf("AddNote: %w", err)
	}

	note := &domain.LoanNote{
		ID:        uuid.New(),
		LoanID:    loanID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("AddNote: %w", err)
	}
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, loanID, noteID uuid.UUID) error {
	if err := s.notes.Delete(ctx, loanID, noteID); err != nil {
		return fmt.Errorf("DeleteNote: %w", err)
	}
	return nil
}
