// Package service implements the lending engine: schedule creation, payment
// reconciliation, corrections, reversals and refinancing. Every mutating
// operation runs in a single transaction and takes the loan row lock first,
// so at most one mutation per loan is ever in flight.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
)

type loanRepo interface {
	Create(ctx context.Context, tx *sql.Tx, loan *domain.Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Loan, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.LoanStatus) error
	UpdateTerms(ctx context.Context, tx *sql.Tx, id uuid.UUID, clientID uuid.UUID, startDate time.Time) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Loan, error)
	SumPrincipal(ctx context.Context, userID uuid.UUID, from, to *time.Time) (decimal.Decimal, error)
}

type installmentRepo interface {
	CreateBatch(ctx context.Context, tx *sql.Tx, installments []domain.Installment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Installment, error)
	Update(ctx context.Context, tx *sql.Tx, in *domain.Installment) error
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error)
	ListByLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) ([]domain.Installment, error)
	CountUnpaid(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) (int, error)
	DeleteByLoan(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error
}

type ledgerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.LedgerEntry, error)
	SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
	SumCollected(ctx context.Context, userID uuid.UUID, from, to *time.Time) (decimal.Decimal, error)
	DeleteByLoan(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) error
}

type clientRepo interface {
	Create(ctx context.Context, tx *sql.Tx, client *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetByUserAndName(ctx context.Context, userID uuid.UUID, name string) (*domain.Client, error)
	GetByUserAndNameTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID, name string) (*domain.Client, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Client, error)
	Update(ctx context.Context, id uuid.UUID, name string, phone *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type noteRepo interface {
	Create(ctx context.Context, note *domain.LoanNote) error
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.LoanNote, error)
	Delete(ctx context.Context, loanID, noteID uuid.UUID) error
}

type Service struct {
	loans        loanRepo
	installments installmentRepo
	ledger       ledgerRepo
	clients      clientRepo
	notes        noteRepo
	db           *sql.DB
}

func NewService(
	loans loanRepo,
	installments installmentRepo,
	ledger ledgerRepo,
	clients clientRepo,
	notes noteRepo,
	db *sql.DB,
) *Service {
	return &Service{
		loans:        loans,
		installments: installments,
		ledger:       ledger,
		clients:      clients,
		notes:        notes,
		db:           db,
	}
}
