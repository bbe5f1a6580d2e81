package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/schedule"
)

// PaymentQuote is advice for the collector at the moment of charging: how
// late or early the payment is and what surcharge or discount the loan's
// daily interest suggests. Nothing here is persisted; the collector decides
// what to actually charge.
type PaymentQuote struct {
	Installment *domain.Installment
	Outstanding decimal.Decimal
	// DiffDays is payment date minus due date in whole days; positive means
	// late.
	DiffDays  int
	DailyRate decimal.Decimal
	// Surcharge is the suggested late fee to add on top of the payment.
	Surcharge decimal.Decimal
	// Discount is the suggested early-payment rebate. It only makes sense
	// as a write-off, so SuggestSettle is set alongside it.
	Discount      decimal.Decimal
	SuggestSettle bool
}

// QuotePayment computes the late-fee / early-discount suggestion for paying
// an installment on the given date. The daily rate is derived from the loan
// itself: total profit divided by the loan's span in days.
func (s *Service) QuotePayment(ctx context.Context, installmentID uuid.UUID, paymentDate time.Time) (*PaymentQuote, error) {
	inst, err := s.installments.GetByID(ctx, installmentID)
	if err != nil {
		return nil, fmt.Errorf("QuotePayment: %w", err)
	}
	loan, err := s.loans.GetByID(ctx, inst.LoanID)
	if err != nil {
		return nil, fmt.Errorf("QuotePayment: %w", err)
	}
	installments, err := s.installments.ListByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("QuotePayment: %w", err)
	}

	rate, err := DeriveDailyRate(loan, installments)
	if err != nil {
		return nil, fmt.Errorf("QuotePayment: %w", err)
	}

	diffDays := wholeDaysBetween(inst.DueDate, paymentDate)
	quote := &PaymentQuote{
		Installment: inst,
		Outstanding: inst.Outstanding(),
		DiffDays:    diffDays,
		DailyRate:   rate,
		Surcharge:   decimal.Zero,
		Discount:    decimal.Zero,
	}

	days := decimal.NewFromInt(int64(diffDays))
	switch {
	case diffDays > 0:
		quote.Surcharge = days.Mul(rate)
	case diffDays < 0:
		quote.Discount = days.Abs().Mul(rate)
		quote.SuggestSettle = true
	}
	return quote, nil
}

// DeriveDailyRate computes a loan's interest per day from its schedule:
// (sum of expected amounts - principal) / (count * days per installment).
// It is derived rather than configured so write-offs automatically shrink
// the figure.
func DeriveDailyRate(loan *domain.Loan, installments []domain.Installment) (decimal.Decimal, error) {
	interval, err := schedule.DaysPerInstallment(loan.Frequency)
	if err != nil {
		return decimal.Zero, err
	}
	spanDays := loan.InstallmentCount * interval
	if spanDays <= 0 {
		return decimal.Zero, nil
	}

	totalExpected := decimal.Zero
	for i := range installments {
		totalExpected = totalExpected.Add(installments[i].ExpectedAmount)
	}
	profit := totalExpected.Sub(loan.Principal)
	return profit.DivRound(decimal.NewFromInt(int64(spanDays)), 6), nil
}

// wholeDaysBetween is ceil(to - from) in days over date-normalized values,
// so a payment later the same day counts as zero days late.
func wholeDaysBetween(from, to time.Time) int {
	f := schedule.NormalizeDate(from)
	t := schedule.NormalizeDate(to)
	diff := t.Sub(f)
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return int(days)
}
