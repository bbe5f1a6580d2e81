package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/arosales/prestafacil/internal/domain"
)

func SeedTestUser(t *testing.T, db *sql.DB, username string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", username, err)
	}
	return u
}

func SeedTestClient(t *testing.T, db *sql.DB, userID uuid.UUID, name string) *domain.Client {
	t.Helper()

	c := &domain.Client{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO clients (id, user_id, name, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Name, c.Phone, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test client %s: %v", name, err)
	}
	return c
}

func GetLoanStatus(t *testing.T, db *sql.DB, loanID uuid.UUID) domain.LoanStatus {
	t.Helper()

	var status domain.LoanStatus
	if err := db.QueryRow(`SELECT status FROM loans WHERE id = $1`, loanID).Scan(&status); err != nil {
		t.Fatalf("get loan status %s: %v", loanID, err)
	}
	return status
}

// SumLedger totals all entry amounts for a loan. After any sequence of
// payments, corrections and reversals it must equal the sum of paid amounts.
func SumLedger(t *testing.T, db *sql.DB, loanID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE loan_id = $1`, loanID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum ledger for loan %s: %v", loanID, err)
	}
	return sum
}

func SumPaid(t *testing.T, db *sql.DB, loanID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(paid_amount), 0) FROM installments WHERE loan_id = $1`, loanID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum paid for loan %s: %v", loanID, err)
	}
	return sum
}

func CountLedgerEntries(t *testing.T, db *sql.DB, loanID uuid.UUID, kind domain.EntryKind) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM ledger_entries WHERE loan_id = $1 AND kind = $2`, loanID, kind,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count %s entries for loan %s: %v", kind, loanID, err)
	}
	return count
}
