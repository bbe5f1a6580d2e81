package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/arosales/prestafacil/internal/domain"
)

// daysPerMonth is the commercial month used everywhere in the interest math.
// Calendar month lengths and Sundays are intentionally ignored.
const daysPerMonth = 30

var (
	two        = decimal.NewFromInt(2)
	oneHundred = decimal.NewFromInt(100)
	thirty     = decimal.NewFromInt(daysPerMonth)
)

// DaysPerInstallment maps a collection frequency to the fixed number of days
// between consecutive due dates.
func DaysPerInstallment(f domain.Frequency) (int, error) {
	switch f {
	case domain.FrequencyDaily:
		return 1, nil
	case domain.FrequencyWeekly:
		return 7, nil
	case domain.FrequencyBiweekly:
		return 15, nil
	case domain.FrequencyMonthly:
		return 30, nil
	default:
		return 0, fmt.Errorf("DaysPerInstallment: %q: %w", f, domain.ErrInvalidTerms)
	}
}

// ProportionalInterest is simple non-compounding interest scaled linearly to
// the loan's duration in days: principal * rate/100 * days/30.
func ProportionalInterest(principal, monthlyRatePct decimal.Decimal, totalDays int) decimal.Decimal {
	return principal.
		Mul(monthlyRatePct).Div(oneHundred).
		Mul(decimal.NewFromInt(int64(totalDays))).Div(thirty)
}

// RoundUpToHalf rounds up to the nearest 0.50: ceil(2x)/2.
func RoundUpToHalf(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(two).Ceil().Div(two)
}
