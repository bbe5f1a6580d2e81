package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "DAILY"
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

type RoundingMode string

const (
	// RoundingExact keeps the mathematically exact per-installment amount.
	RoundingExact RoundingMode = "exact"
	// RoundingHalfStep rounds each installment up to the nearest 0.50 and
	// recomputes the grand total from the rounded amount.
	RoundingHalfStep RoundingMode = "half_step"
)

func (m RoundingMode) IsValid() bool {
	switch m {
	case RoundingExact, RoundingHalfStep:
		return true
	default:
		return false
	}
}

type LoanStatus string

const (
	LoanStatusActive     LoanStatus = "ACTIVE"
	LoanStatusPending    LoanStatus = "PENDING"
	LoanStatusFinished   LoanStatus = "FINISHED"
	LoanStatusRefinanced LoanStatus = "REFINANCED"
	LoanStatusCanceled   LoanStatus = "CANCELED"
)

// Terminal statuses are never overwritten by reconciliation cascades.
// A reversal can flip FINISHED back to ACTIVE, but never REFINANCED or
// CANCELED.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusRefinanced || s == LoanStatusCanceled
}

type Loan struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	Principal        decimal.Decimal
	MonthlyRatePct   decimal.Decimal
	Frequency        Frequency
	InstallmentCount int
	StartDate        time.Time
	DailyLateFee     decimal.Decimal
	RoundingMode     RoundingMode
	Status           LoanStatus
	RefinancedFrom   *uuid.UUID
	CreatedAt        time.Time
}
