// Package schedule turns loan terms into an ordered installment plan. It is
// pure: no clock reads, no persistence, every date comes in as a parameter.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
)

// amountScale is the decimal scale installment amounts are stored at. The
// exact mode divides the total by the installment count, which is often
// non-terminating; six places keeps the schedule-sum drift far below the
// 0.10 paid tolerance.
const amountScale = 6

type Terms struct {
	Principal        decimal.Decimal
	MonthlyRatePct   decimal.Decimal
	Frequency        domain.Frequency
	InstallmentCount int
	StartDate        time.Time
	Rounding         domain.RoundingMode
}

type PlannedInstallment struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
}

type Plan struct {
	Installments   []PlannedInstallment
	TotalToCollect decimal.Decimal
	PerInstallment decimal.Decimal
	Interest       decimal.Decimal
}

func (t Terms) validate() error {
	if !t.Principal.IsPositive() {
		return fmt.Errorf("principal must be positive: %w", domain.ErrInvalidTerms)
	}
	if t.InstallmentCount <= 0 {
		return fmt.Errorf("installment count must be positive: %w", domain.ErrInvalidTerms)
	}
	if t.MonthlyRatePct.IsNegative() {
		return fmt.Errorf("monthly rate cannot be negative: %w", domain.ErrInvalidTerms)
	}
	if !t.Frequency.IsValid() {
		return fmt.Errorf("unknown frequency %q: %w", t.Frequency, domain.ErrInvalidTerms)
	}
	if !t.Rounding.IsValid() {
		return fmt.Errorf("unknown rounding mode %q: %w", t.Rounding, domain.ErrInvalidTerms)
	}
	return nil
}

// Generate builds the full installment plan for the given terms.
//
// Interest is proportional over the real duration in days. The first due
// date is one interval after the start date, not the start date itself. In
// half-step mode each installment is rounded up to the nearest 0.50 and the
// total is recomputed from the rounded amount, so the total may exceed the
// exact figure by up to 0.50 per installment.
func Generate(t Terms) (*Plan, error) {
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	interval, err := DaysPerInstallment(t.Frequency)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}
	totalDays := t.InstallmentCount * interval

	interest := ProportionalInterest(t.Principal, t.MonthlyRatePct, totalDays)
	total := t.Principal.Add(interest)
	count := decimal.NewFromInt(int64(t.InstallmentCount))

	per := total.DivRound(count, amountScale)
	if t.Rounding == domain.RoundingHalfStep {
		per = RoundUpToHalf(per)
		total = per.Mul(count)
		interest = total.Sub(t.Principal)
	}

	installments := make([]PlannedInstallment, 0, t.InstallmentCount)
	due := NormalizeDate(t.StartDate)
	for i := 1; i <= t.InstallmentCount; i++ {
		due = due.AddDate(0, 0, interval)
		installments = append(installments, PlannedInstallment{
			Number:  i,
			DueDate: due,
			Amount:  per,
		})
	}

	return &Plan{
		Installments:   installments,
		TotalToCollect: total,
		PerInstallment: per,
		Interest:       interest,
	}, nil
}

// NormalizeDate pins a date to noon UTC so adding whole days never shifts
// the calendar day across timezones or DST boundaries.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}
