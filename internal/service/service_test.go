package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arosales/prestafacil/internal/domain"
	"github.com/arosales/prestafacil/internal/repository"
	"github.com/arosales/prestafacil/internal/service"
	"github.com/arosales/prestafacil/internal/testutil"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc          *service.Service
	db           *sql.DB
	installments *repository.InstallmentRepository
	ledger       *repository.LedgerRepository
	user         *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)

	installments := repository.NewInstallmentRepository(db)
	ledger := repository.NewLedgerRepository(db)
	svc := service.NewService(
		repository.NewLoanRepository(db),
		installments,
		ledger,
		repository.NewClientRepository(db),
		repository.NewNoteRepository(db),
		db,
	)

	return &fixture{
		svc:          svc,
		db:           db,
		installments: installments,
		ledger:       ledger,
		user:         testutil.SeedTestUser(t, db, "collector"),
	}
}

func (f *fixture) createLoan(t *testing.T, principal, rate string, count int, freq domain.Frequency, rounding domain.RoundingMode) *domain.Loan {
	t.Helper()
	loan, err := f.svc.CreateLoan(context.Background(), service.CreateLoanRequest{
		UserID:           f.user.ID,
		ClientName:       "Maria",
		Principal:        d(principal),
		MonthlyRatePct:   d(rate),
		Frequency:        freq,
		InstallmentCount: count,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DailyLateFee:     decimal.Zero,
		Rounding:         rounding,
	})
	require.NoError(t, err)
	return loan
}

func (f *fixture) loanInstallments(t *testing.T, loan *domain.Loan) []domain.Installment {
	t.Helper()
	ins, err := f.installments.ListByLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	require.Len(t, ins, loan.InstallmentCount)
	return ins
}

func TestCreateLoan_GeneratesSchedule(t *testing.T) {
	f := newFixture(t)

	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)

	ins := f.loanInstallments(t, loan)
	assert.True(t, ins[0].ExpectedAmount.Equal(d("600")), "per %s", ins[0].ExpectedAmount)
	assert.True(t, ins[0].OriginalAmount.Equal(ins[0].ExpectedAmount))
	assert.Equal(t, time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC), ins[0].DueDate.UTC())
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), ins[1].DueDate.UTC())

	// A second loan for the same client name reuses the client row.
	second := f.createLoan(t, "500", "10", 1, domain.FrequencyWeekly, domain.RoundingExact)
	assert.Equal(t, loan.ClientID, second.ClientID)
}

func TestApplyPayment_FullPaymentFinishesLoan(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)

	res, err := f.svc.ApplyPayment(context.Background(), service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("1100"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, res.Installment.Status)
	assert.Equal(t, domain.LoanStatusFinished, res.LoanStatus)
	assert.Equal(t, domain.LoanStatusFinished, testutil.GetLoanStatus(t, f.db, loan.ID))

	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(testutil.SumPaid(t, f.db, loan.ID)))
}

func TestApplyPayment_PartialKeepsInstallmentOpen(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)

	res, err := f.svc.ApplyPayment(context.Background(), service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("500"),
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPending, res.Installment.Status)
	assert.Equal(t, domain.LoanStatusActive, res.LoanStatus)
	assert.True(t, res.Installment.Outstanding().Equal(d("600")))
}

func TestApplyPayment_WithinToleranceCounts(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)

	// 1099.95 against 1100 expected lands inside the 0.10 tolerance.
	res, err := f.svc.ApplyPayment(context.Background(), service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("1099.95"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, res.Installment.Status)
	assert.Equal(t, domain.LoanStatusFinished, res.LoanStatus)
}

func TestApplyPayment_SettleWritesOffRemainder(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)

	res, err := f.svc.ApplyPayment(context.Background(), service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("400"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Settle:        true,
	})
	require.NoError(t, err)

	// Expected drops to the paid total; the original stays on record.
	assert.True(t, res.Installment.ExpectedAmount.Equal(d("400")))
	assert.True(t, res.Installment.OriginalAmount.Equal(d("600")))
	assert.Equal(t, domain.InstallmentStatusPaid, res.Installment.Status)
	assert.Equal(t, domain.LoanStatusActive, res.LoanStatus)

	// Only the cash actually received hits the ledger.
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(d("400")))
}

func TestApplyPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        decimal.Zero,
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("-10"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	// Pay it off, then try to pay again.
	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("1100"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("10"),
		Date:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInstallmentSettled)
}

func TestCorrectPayment(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("200"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Raise the paid total to the full amount: the delta entry closes it.
	res, err := f.svc.CorrectPayment(ctx, ins[0].ID, d("600"))
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, res.Installment.Status)
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, f.db, loan.ID, domain.EntryKindCorrection))
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(testutil.SumPaid(t, f.db, loan.ID)))

	// Lower it back down: a negative delta reopens the installment.
	res, err = f.svc.CorrectPayment(ctx, ins[0].ID, d("100"))
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPending, res.Installment.Status)
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(d("100")))
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(testutil.SumPaid(t, f.db, loan.ID)))

	// Correcting to the current value is a no-op with no new entry.
	before := testutil.CountLedgerEntries(t, f.db, loan.ID, domain.EntryKindCorrection)
	_, err = f.svc.CorrectPayment(ctx, ins[0].ID, d("100"))
	require.NoError(t, err)
	assert.Equal(t, before, testutil.CountLedgerEntries(t, f.db, loan.ID, domain.EntryKindCorrection))

	_, err = f.svc.CorrectPayment(ctx, ins[0].ID, d("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestReversePayment_ReopensFinishedLoan(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("1100"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, domain.LoanStatusFinished, testutil.GetLoanStatus(t, f.db, loan.ID))

	res, err := f.svc.ReversePayment(ctx, ins[0].ID)
	require.NoError(t, err)

	assert.True(t, res.Installment.PaidAmount.IsZero())
	assert.Equal(t, domain.InstallmentStatusPending, res.Installment.Status)
	assert.Equal(t, domain.LoanStatusActive, res.LoanStatus)

	// The negating entry keeps the ledger in step with the paid totals.
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, f.db, loan.ID, domain.EntryKindReversal))
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).IsZero())

	// Nothing left to reverse.
	_, err = f.svc.ReversePayment(ctx, ins[0].ID)
	assert.ErrorIs(t, err, domain.ErrNothingToReverse)
}

func TestLedgerMatchesPaidAfterMixedSequence(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 3, domain.FrequencyWeekly, domain.RoundingHalfStep)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	pay := func(id int, amount string) {
		_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
			InstallmentID: ins[id].ID,
			Amount:        d(amount),
			Date:          time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	pay(0, "100")
	pay(0, "50.50")
	pay(1, "200")
	_, err := f.svc.CorrectPayment(ctx, ins[1].ID, d("120"))
	require.NoError(t, err)
	_, err = f.svc.ReversePayment(ctx, ins[0].ID)
	require.NoError(t, err)
	pay(0, "75.25")

	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(testutil.SumPaid(t, f.db, loan.ID)))
}

func TestRefinance(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("500"),
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Outstanding 600, 100 handed over at the table: successor is 500.
	successor, err := f.svc.Refinance(ctx, service.RefinanceRequest{
		LoanID:              loan.ID,
		PaidToday:           d("100"),
		ExtraCapital:        decimal.Zero,
		NewMonthlyRatePct:   d("10"),
		NewInstallmentCount: 2,
		NewFrequency:        domain.FrequencyMonthly,
		NewDailyLateFee:     decimal.Zero,
		NewRounding:         domain.RoundingExact,
		AsOf:                time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, successor.Principal.Equal(d("500")))
	require.NotNil(t, successor.RefinancedFrom)
	assert.Equal(t, loan.ID, *successor.RefinancedFrom)
	assert.Equal(t, loan.ClientID, successor.ClientID)
	assert.Equal(t, domain.LoanStatusActive, successor.Status)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), successor.StartDate.UTC())

	assert.Equal(t, domain.LoanStatusRefinanced, testutil.GetLoanStatus(t, f.db, loan.ID))
	assert.Equal(t, 1, testutil.CountLedgerEntries(t, f.db, loan.ID, domain.EntryKindRefinanceBridge))

	// 500 at 10% over two months: 300 per installment.
	succIns := f.loanInstallments(t, successor)
	assert.True(t, succIns[0].ExpectedAmount.Equal(d("300")), "per %s", succIns[0].ExpectedAmount)

	// The source is terminal now: no more payments, no second refinance.
	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("10"),
		Date:          time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrLoanTerminal)

	_, err = f.svc.Refinance(ctx, service.RefinanceRequest{
		LoanID:              loan.ID,
		PaidToday:           decimal.Zero,
		NewMonthlyRatePct:   d("10"),
		NewInstallmentCount: 1,
		NewFrequency:        domain.FrequencyMonthly,
		NewRounding:         domain.RoundingExact,
		AsOf:                time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrLoanTerminal)
}

func TestRefinance_RejectsNonPositivePrincipal(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ctx := context.Background()

	// Paying the whole outstanding balance leaves nothing to refinance.
	_, err := f.svc.Refinance(ctx, service.RefinanceRequest{
		LoanID:              loan.ID,
		PaidToday:           d("1100"),
		ExtraCapital:        decimal.Zero,
		NewMonthlyRatePct:   d("10"),
		NewInstallmentCount: 1,
		NewFrequency:        domain.FrequencyMonthly,
		NewRounding:         domain.RoundingExact,
		AsOf:                time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrNegativePrincipal)

	_, err = f.svc.Refinance(ctx, service.RefinanceRequest{
		LoanID:              loan.ID,
		PaidToday:           d("-5"),
		NewMonthlyRatePct:   d("10"),
		NewInstallmentCount: 1,
		NewFrequency:        domain.FrequencyMonthly,
		NewRounding:         domain.RoundingExact,
		AsOf:                time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCancelLoan_IsTerminal(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	canceled, err := f.svc.CancelLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCanceled, canceled.Status)

	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("100"),
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrLoanTerminal)

	_, err = f.svc.CancelLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, domain.ErrLoanTerminal)
}

func TestDeleteLoan_CascadesScheduleAndLedger(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("600"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteLoan(ctx, loan.ID))

	var loans, installments, entries int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE id = $1`, loan.ID).Scan(&loans))
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM installments WHERE loan_id = $1`, loan.ID).Scan(&installments))
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE loan_id = $1`, loan.ID).Scan(&entries))
	assert.Zero(t, loans)
	assert.Zero(t, installments)
	assert.Zero(t, entries)
}

func TestUpdateLoan_StartDateLockedAfterPayment(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	_ = f.loanInstallments(t, loan)
	ctx := context.Background()

	// Before any payment the whole schedule can move.
	newStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	updated, err := f.svc.UpdateLoan(ctx, service.UpdateLoanRequest{
		UserID:    f.user.ID,
		LoanID:    loan.ID,
		StartDate: &newStart,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), updated.StartDate.UTC())

	regenerated := f.loanInstallments(t, loan)
	assert.Equal(t, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), regenerated[0].DueDate.UTC())

	// A paid installment pins the schedule down.
	_, err = f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: regenerated[0].ID,
		Amount:        d("600"),
		Date:          time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	thirdStart := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.UpdateLoan(ctx, service.UpdateLoanRequest{
		UserID:    f.user.ID,
		LoanID:    loan.ID,
		StartDate: &thirdStart,
	})
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)
}

func TestUpdateLoan_PartialPaymentLocksSchedule(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	// 100 into installment #1 leaves it PENDING but the cash is real.
	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("100"),
		Date:          time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	newStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.UpdateLoan(ctx, service.UpdateLoanRequest{
		UserID:    f.user.ID,
		LoanID:    loan.ID,
		StartDate: &newStart,
	})
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)

	// The schedule and the collected cash are both untouched.
	kept := f.loanInstallments(t, loan)
	assert.Equal(t, ins[0].ID, kept[0].ID)
	assert.True(t, kept[0].PaidAmount.Equal(d("100")), "paid %s", kept[0].PaidAmount)
	assert.True(t, testutil.SumLedger(t, f.db, loan.ID).Equal(d("100")))
}

func TestUpdateLoan_RejectsTerminalLoan(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ctx := context.Background()

	_, err := f.svc.CancelLoan(ctx, loan.ID)
	require.NoError(t, err)

	newStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.UpdateLoan(ctx, service.UpdateLoanRequest{
		UserID:    f.user.ID,
		LoanID:    loan.ID,
		StartDate: &newStart,
	})
	assert.ErrorIs(t, err, domain.ErrLoanTerminal)
}

func TestDeleteNote_ScopedToLoan(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	other := f.createLoan(t, "500", "10", 1, domain.FrequencyWeekly, domain.RoundingExact)
	ctx := context.Background()

	note, err := f.svc.AddNote(ctx, loan.ID, "promised to pay friday")
	require.NoError(t, err)

	// Pairing the note with a different loan id must not delete it.
	err = f.svc.DeleteNote(ctx, other.ID, note.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var count int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM loan_notes WHERE id = $1`, note.ID).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, f.svc.DeleteNote(ctx, loan.ID, note.ID))
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM loan_notes WHERE id = $1`, note.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestQuotePayment(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	// Profit 100 over 30 days: 3.333333 per day.
	late, err := f.svc.QuotePayment(ctx, ins[0].ID, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 5, late.DiffDays)
	assert.True(t, late.DailyRate.Equal(d("3.333333")), "rate %s", late.DailyRate)
	assert.True(t, late.Surcharge.Equal(d("16.666665")), "surcharge %s", late.Surcharge)
	assert.True(t, late.Discount.IsZero())
	assert.False(t, late.SuggestSettle)

	early, err := f.svc.QuotePayment(ctx, ins[0].ID, time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, -6, early.DiffDays)
	assert.True(t, early.Discount.Equal(d("19.999998")), "discount %s", early.Discount)
	assert.True(t, early.Surcharge.IsZero())
	assert.True(t, early.SuggestSettle)

	onTime, err := f.svc.QuotePayment(ctx, ins[0].ID, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, onTime.DiffDays)
	assert.True(t, onTime.Surcharge.IsZero())
	assert.True(t, onTime.Discount.IsZero())
}

func TestGetLoanDetail(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 2, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("600"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = f.svc.AddNote(ctx, loan.ID, "asked for an extra week")
	require.NoError(t, err)

	// As of mid-February: installment 1 paid, installment 2 not yet due.
	detail, err := f.svc.GetLoanDetail(ctx, loan.ID, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, detail.PaidCount)
	assert.Zero(t, detail.OverdueCount)
	require.NotNil(t, detail.NextDue)
	assert.Equal(t, 2, detail.NextDue.Number)
	assert.True(t, detail.OutstandingBalance.Equal(d("600")))
	assert.Len(t, detail.Notes, 1)
	assert.Len(t, detail.Entries, 1)

	// As of April the second installment is overdue.
	detail, err = f.svc.GetLoanDetail(ctx, loan.ID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, detail.OverdueCount)
	assert.True(t, detail.OverdueAmount.Equal(d("600")))
	assert.Nil(t, detail.NextDue)
}

func TestGetLoanForUser_OwnershipScoped(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ctx := context.Background()

	other := testutil.SeedTestUser(t, f.db, "other-collector")

	_, err := f.svc.GetLoanForUser(ctx, loan.ID, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.GetLoanForUser(ctx, loan.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCashBox(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ins := f.loanInstallments(t, loan)
	ctx := context.Background()

	_, err := f.svc.ApplyPayment(ctx, service.ApplyPaymentRequest{
		InstallmentID: ins[0].ID,
		Amount:        d("1100"),
		Date:          time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	summary, err := f.svc.GetCashBox(ctx, f.user.ID, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, summary.TotalLent.Equal(d("1000")), "lent %s", summary.TotalLent)
	assert.True(t, summary.TotalCollected.Equal(d("1100")), "collected %s", summary.TotalCollected)
	// Everything owed came back in: lent 1000 + gain 100 - collected 1100.
	assert.True(t, summary.DemandableDebt.IsZero(), "debt %s", summary.DemandableDebt)
	assert.True(t, summary.MonthInflow.Equal(d("1100")))
	assert.True(t, summary.MonthOutflow.Equal(d("1000")))
	assert.True(t, summary.MonthNetFlow.Equal(d("100")))
}

func TestClientManagement(t *testing.T) {
	f := newFixture(t)
	loan := f.createLoan(t, "1000", "10", 1, domain.FrequencyMonthly, domain.RoundingExact)
	ctx := context.Background()

	clients, err := f.svc.ListClients(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Maria", clients[0].Name)

	phone := "555-0101"
	updated, err := f.svc.UpdateClient(ctx, clients[0].ID, f.user.ID, "Maria Lopez", &phone)
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", updated.Name)

	// A second client cannot take an existing name.
	second := testutil.SeedTestClient(t, f.db, f.user.ID, "Jorge")
	_, err = f.svc.UpdateClient(ctx, second.ID, f.user.ID, "Maria Lopez", nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateClient)

	// Another collector cannot touch this client.
	other := testutil.SeedTestUser(t, f.db, "other-collector")
	_, err = f.svc.UpdateClient(ctx, clients[0].ID, other.ID, "Hijacked", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting the client takes their loans with them.
	require.NoError(t, f.svc.DeleteClient(ctx, clients[0].ID, f.user.ID))
	var loans int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE id = $1`, loan.ID).Scan(&loans))
	assert.Zero(t, loans)
}
