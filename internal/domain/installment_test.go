package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInstallmentFullyPaid(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		paid     string
		want     bool
	}{
		{"unpaid", "100", "0", false},
		{"partial", "100", "50", false},
		{"exact", "100", "100", true},
		{"overpaid", "100", "120", true},
		{"within tolerance", "100", "99.90", true},
		{"just outside tolerance", "100", "99.89", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := Installment{
				ExpectedAmount: decimal.RequireFromString(tc.expected),
				PaidAmount:     decimal.RequireFromString(tc.paid),
			}
			assert.Equal(t, tc.want, in.FullyPaid())
		})
	}
}

func TestInstallmentOutstanding(t *testing.T) {
	in := Installment{
		ExpectedAmount: decimal.RequireFromString("100"),
		PaidAmount:     decimal.RequireFromString("30"),
	}
	assert.True(t, in.Outstanding().Equal(decimal.RequireFromString("70")))

	// Overpayment clamps at zero rather than producing credit.
	in.PaidAmount = decimal.RequireFromString("130")
	assert.True(t, in.Outstanding().IsZero())
}

func TestLoanStatusTerminal(t *testing.T) {
	assert.False(t, LoanStatusActive.Terminal())
	assert.False(t, LoanStatusPending.Terminal())
	assert.False(t, LoanStatusFinished.Terminal())
	assert.True(t, LoanStatusRefinanced.Terminal())
	assert.True(t, LoanStatusCanceled.Terminal())
}
