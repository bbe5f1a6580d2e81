package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashBoxSummary is the collector's money dashboard: lifetime totals plus
// the current month's flow, all computed against an explicit as-of date.
type CashBoxSummary struct {
	TotalLent      decimal.Decimal
	TotalCollected decimal.Decimal
	// DemandableDebt is what is still out on the street: lent plus projected
	// gain minus collected, clamped at zero.
	DemandableDebt decimal.Decimal

	MonthInflow  decimal.Decimal
	MonthOutflow decimal.Decimal
	MonthNetFlow decimal.Decimal
}

func (s *Service) GetCashBox(ctx context.Context, userID uuid.UUID, asOf time.Time) (*CashBoxSummary, error) {
	totalLent, err := s.loans.SumPrincipal(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("GetCashBox: %w", err)
	}
	totalCollected, err := s.ledger.SumCollected(ctx, userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("GetCashBox: %w", err)
	}
	projectedGain, err := s.projectedGain(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetCashBox: %w", err)
	}

	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	inflow, err := s.ledger.SumCollected(ctx, userID, &monthStart, &monthEnd)
	if err != nil {
		return nil, fmt.Errorf("GetCashBox: %w", err)
	}
	outflow, err := s.loans.SumPrincipal(ctx, userID, &monthStart, &monthEnd)
	if err != nil {
		return nil, fmt.Errorf("GetCashBox: %w", err)
	}

	debt := totalLent.Add(projectedGain).Sub(totalCollected)
	if debt.IsNegative() {
		debt = decimal.Zero
	}

	return &CashBoxSummary{
		TotalLent:      totalLent,
		TotalCollected: totalCollected,
		DemandableDebt: debt,
		MonthInflow:    inflow,
		MonthOutflow:   outflow,
		MonthNetFlow:   inflow.Sub(outflow),
	}, nil
}

// projectedGain sums expected-over-principal across all the collector's
// loans. Computed per loan so settlements lower the figure.
func (s *Service) projectedGain(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	clients, err := s.clients.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	gain := decimal.Zero
	for _, c := range clients {
		loans, err := s.loans.ListByClient(ctx, c.ID)
		if err != nil {
			return decimal.Zero, err
		}
		for i := range loans {
			installments, err := s.installments.ListByLoan(ctx, loans[i].ID)
			if err != nil {
				return decimal.Zero, err
			}
			expected := decimal.Zero
			for j := range installments {
				expected = expected.Add(installments[j].ExpectedAmount)
			}
			gain = gain.Add(expected.Sub(loans[i].Principal))
		}
	}
	return gain, nil
}
