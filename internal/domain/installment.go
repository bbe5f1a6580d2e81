package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaidTolerance absorbs cent-level rounding drift when deciding whether an
// installment is fully paid: paid >= expected - 0.10 counts as settled.
var PaidTolerance = decimal.RequireFromString("0.10")

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
)

type Installment struct {
	ID     uuid.UUID
	LoanID uuid.UUID
	// Number is 1-based and unique within the loan; insertion order is
	// due-date order.
	Number  int
	DueDate time.Time
	// OriginalAmount is the contractual amount and never changes.
	OriginalAmount decimal.Decimal
	// ExpectedAmount starts equal to OriginalAmount and may only be lowered
	// by a settlement write-off, never below the amount already paid.
	ExpectedAmount decimal.Decimal
	PaidAmount     decimal.Decimal
	Status         InstallmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (i *Installment) FullyPaid() bool {
	return i.PaidAmount.GreaterThanOrEqual(i.ExpectedAmount.Sub(PaidTolerance))
}

// Outstanding is the unpaid remainder, clamped at zero. Overpayment never
// produces credit toward other installments.
func (i *Installment) Outstanding() decimal.Decimal {
	rest := i.ExpectedAmount.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
