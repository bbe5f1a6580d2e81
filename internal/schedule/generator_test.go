package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arosales/prestafacil/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDaysPerInstallment(t *testing.T) {
	tests := []struct {
		frequency domain.Frequency
		want      int
	}{
		{domain.FrequencyDaily, 1},
		{domain.FrequencyWeekly, 7},
		{domain.FrequencyBiweekly, 15},
		{domain.FrequencyMonthly, 30},
	}

	for _, tc := range tests {
		t.Run(string(tc.frequency), func(t *testing.T) {
			got, err := DaysPerInstallment(tc.frequency)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DaysPerInstallment("YEARLY")
	assert.ErrorIs(t, err, domain.ErrInvalidTerms)
}

func TestProportionalInterest(t *testing.T) {
	// 1000 at 10% monthly over 30 days is exactly one month of interest.
	got := ProportionalInterest(d("1000"), d("10"), 30)
	assert.True(t, got.Equal(d("100")), "got %s", got)

	// 15 days is half a month.
	got = ProportionalInterest(d("1000"), d("10"), 15)
	assert.True(t, got.Equal(d("50")), "got %s", got)

	// 90 days triples it, no compounding.
	got = ProportionalInterest(d("1000"), d("10"), 90)
	assert.True(t, got.Equal(d("300")), "got %s", got)
}

func TestRoundUpToHalf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"23.10", "23.5"},
		{"23.50", "23.5"},
		{"23.51", "24"},
		{"23.99", "24"},
		{"10", "10"},
		{"0.01", "0.5"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := RoundUpToHalf(d(tc.in))
			assert.True(t, got.Equal(d(tc.want)), "RoundUpToHalf(%s) = %s, want %s", tc.in, got, tc.want)
		})
	}
}

func TestGenerate_SingleMonthlyInstallment(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	plan, err := Generate(Terms{
		Principal:        d("1000"),
		MonthlyRatePct:   d("10"),
		Frequency:        domain.FrequencyMonthly,
		InstallmentCount: 1,
		StartDate:        start,
		Rounding:         domain.RoundingExact,
	})
	require.NoError(t, err)

	assert.True(t, plan.Interest.Equal(d("100")), "interest %s", plan.Interest)
	assert.True(t, plan.TotalToCollect.Equal(d("1100")), "total %s", plan.TotalToCollect)
	require.Len(t, plan.Installments, 1)
	assert.True(t, plan.Installments[0].Amount.Equal(d("1100")))
	assert.Equal(t, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC), plan.Installments[0].DueDate)
}

func TestGenerate_WeeklySpacing(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	plan, err := Generate(Terms{
		Principal:        d("700"),
		MonthlyRatePct:   d("15"),
		Frequency:        domain.FrequencyWeekly,
		InstallmentCount: 4,
		StartDate:        start,
		Rounding:         domain.RoundingExact,
	})
	require.NoError(t, err)
	require.Len(t, plan.Installments, 4)

	// First due date is one interval after start, then evenly spaced.
	want := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	for i, in := range plan.Installments {
		assert.Equal(t, i+1, in.Number)
		assert.Equal(t, want, in.DueDate, "installment %d", i+1)
		want = want.AddDate(0, 0, 7)
	}
}

func TestGenerate_ExactSumCloseToTotal(t *testing.T) {
	// 1100/3 does not terminate; the per-installment rounding drift must stay
	// far below the paid tolerance.
	plan, err := Generate(Terms{
		Principal:        d("1000"),
		MonthlyRatePct:   d("10"),
		Frequency:        domain.FrequencyMonthly,
		InstallmentCount: 3,
		StartDate:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Rounding:         domain.RoundingExact,
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, in := range plan.Installments {
		sum = sum.Add(in.Amount)
	}
	drift := sum.Sub(plan.TotalToCollect).Abs()
	assert.True(t, drift.LessThan(domain.PaidTolerance), "drift %s", drift)
}

func TestGenerate_HalfStepRounding(t *testing.T) {
	// 1300/3 = 433.33... rounds up to 433.50 per installment and the total
	// and interest are recomputed from the rounded figure.
	plan, err := Generate(Terms{
		Principal:        d("1000"),
		MonthlyRatePct:   d("10"),
		Frequency:        domain.FrequencyMonthly,
		InstallmentCount: 3,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Rounding:         domain.RoundingHalfStep,
	})
	require.NoError(t, err)

	assert.True(t, plan.PerInstallment.Equal(d("433.5")), "per %s", plan.PerInstallment)
	assert.True(t, plan.TotalToCollect.Equal(d("1300.5")), "total %s", plan.TotalToCollect)
	assert.True(t, plan.Interest.Equal(d("300.5")), "interest %s", plan.Interest)
}

func TestGenerate_InvalidTerms(t *testing.T) {
	valid := Terms{
		Principal:        d("1000"),
		MonthlyRatePct:   d("10"),
		Frequency:        domain.FrequencyMonthly,
		InstallmentCount: 3,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Rounding:         domain.RoundingExact,
	}

	tests := []struct {
		name   string
		mutate func(*Terms)
	}{
		{"zero principal", func(tm *Terms) { tm.Principal = decimal.Zero }},
		{"negative principal", func(tm *Terms) { tm.Principal = d("-5") }},
		{"negative rate", func(tm *Terms) { tm.MonthlyRatePct = d("-1") }},
		{"zero installments", func(tm *Terms) { tm.InstallmentCount = 0 }},
		{"bad frequency", func(tm *Terms) { tm.Frequency = "FORTNIGHTLY" }},
		{"bad rounding", func(tm *Terms) { tm.Rounding = "bankers" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			terms := valid
			tc.mutate(&terms)
			_, err := Generate(terms)
			assert.ErrorIs(t, err, domain.ErrInvalidTerms)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	in := time.Date(2026, 6, 3, 23, 45, 12, 0, time.FixedZone("X", -5*3600))
	got := NormalizeDate(in)
	assert.Equal(t, time.Date(2026, 6, 3, 12, 0, 0, 0, time.UTC), got)
}
