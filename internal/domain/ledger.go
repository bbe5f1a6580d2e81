package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindInstallmentPayment EntryKind = "INSTALLMENT_PAYMENT"
	EntryKindReversal           EntryKind = "REVERSAL"
	EntryKindCorrection         EntryKind = "CORRECTION"
	EntryKindRefinanceBridge    EntryKind = "REFINANCE_BRIDGE"
)

// LedgerEntry is an immutable signed cash-movement record. Positive amounts
// are collections, negative amounts are reversals or corrections down.
// Mistakes are fixed by appending new entries, never by editing.
type LedgerEntry struct {
	ID            uuid.UUID
	LoanID        uuid.UUID
	InstallmentID *uuid.UUID
	Kind          EntryKind
	Amount        decimal.Decimal
	EntryDate     time.Time
	Note          string
	CreatedAt     time.Time
}
