package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyohei-t/akatsuki/internal/executor"
	"github.com/kyohei-t/akatsuki/internal/funding"
	"github.com/kyohei-t/akatsuki/internal/ledger"
	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/notify"
	"github.com/kyohei-t/akatsuki/internal/objstore"
)

const testDate = "20240106"

type fakeObserver struct {
	bets []model.ExistingBet
	err  error
}

func (o *fakeObserver) FetchBets(ctx context.Context, date string) ([]model.ExistingBet, error) {
	return o.bets, o.err
}

type fakeFunder struct {
	result funding.Result
	err    error
	calls  [][]model.Ticket
}

func (f *fakeFunder) Ensure(ctx context.Context, toPurchase []model.Ticket) (funding.Result, error) {
	f.calls = append(f.calls, toPurchase)
	return f.result, f.err
}

type fakeRunner struct {
	stats executor.Stats
	err   error
	calls [][]model.Ticket
}

func (r *fakeRunner) Execute(ctx context.Context, date string, toPurchase []model.Ticket) (executor.Stats, error) {
	r.calls = append(r.calls, toPurchase)
	return r.stats, r.err
}

type fixture struct {
	observer *fakeObserver
	funder   *fakeFunder
	runner   *fakeRunner
	objects  objstore.Store
	ledger   *ledger.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	objects, err := objstore.NewFS(t.TempDir())
	require.NoError(t, err)
	return &fixture{
		observer: &fakeObserver{},
		funder:   &fakeFunder{result: funding.Result{State: funding.StateProceed}},
		runner:   &fakeRunner{},
		objects:  objects,
		ledger:   ledger.NewStore(objects, time.Minute),
	}
}

func (f *fixture) engine(opts ...Option) *Engine {
	return New(f.observer, f.funder, f.runner, f.ledger, f.objects, notify.Nop{}, opts...)
}

func ticket(course string, race, horse, amount int) model.Ticket {
	return model.Ticket{RaceCourse: course, RaceNumber: race, BetType: "単勝", HorseNumber: horse, Amount: amount}
}

func existingFor(t model.Ticket, receipt string) model.ExistingBet {
	return model.ExistingBet{
		ReceiptID: receipt, RaceCourse: t.RaceCourse, RaceNumber: t.RaceNumber,
		BetType: t.BetType, HorseNumber: t.HorseNumber, Amount: t.Amount,
	}
}

func TestRunPurchasesEverythingOnCleanSlate(t *testing.T) {
	f := newFixture(t)
	f.runner.stats = executor.Stats{Purchased: 2}
	tickets := []model.Ticket{ticket("東京", 1, 3, 1000), ticket("東京", 2, 7, 2000)}

	summary, err := f.engine().Run(context.Background(), testDate, tickets)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Requested)
	assert.Equal(t, 0, summary.AlreadyPurchased)
	assert.Equal(t, tickets, summary.ToPurchase)
	assert.Equal(t, [][]model.Ticket{tickets}, f.funder.calls)
	assert.Equal(t, [][]model.Ticket{tickets}, f.runner.calls)
}

func TestRunSkipsBetsVisibleOnTerminal(t *testing.T) {
	f := newFixture(t)
	first := ticket("東京", 1, 3, 1000)
	second := ticket("東京", 2, 7, 2000)
	f.observer.bets = []model.ExistingBet{existingFor(first, "0001")}

	summary, err := f.engine().Run(context.Background(), testDate, []model.Ticket{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyPurchased)
	assert.Equal(t, [][]model.Ticket{{second}}, f.runner.calls)
}

func TestRunSkipsLedgerPurchasedRecords(t *testing.T) {
	f := newFixture(t)
	first := ticket("中山", 5, 2, 3000)
	second := ticket("中山", 6, 8, 1000)
	rec := model.NewRecord(first, model.StatusPurchased, time.Now())
	require.NoError(t, f.ledger.Append(context.Background(), testDate, rec))

	summary, err := f.engine().Run(context.Background(), testDate, []model.Ticket{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyPurchased)
	assert.Equal(t, [][]model.Ticket{{second}}, f.runner.calls)
}

func TestRunRetriesFailedAndUnverifiedRecords(t *testing.T) {
	// A failed or unverified record only tells the story of a past
	// attempt. The terminal inquiry decides whether a retry is safe.
	f := newFixture(t)
	tk := ticket("阪神", 11, 4, 5000)
	for _, status := range []model.RecordStatus{model.StatusFailed, model.StatusUnverified} {
		rec := model.NewRecord(tk, status, time.Now())
		require.NoError(t, f.ledger.Append(context.Background(), testDate, rec))
	}

	_, err := f.engine().Run(context.Background(), testDate, []model.Ticket{tk})
	require.NoError(t, err)
	assert.Equal(t, [][]model.Ticket{{tk}}, f.runner.calls)
}

func TestRunUnverifiedTicketNotResubmittedOnceVisible(t *testing.T) {
	// The previous run ended with an unverified submission that did in
	// fact go through. The inquiry now shows it, so it is never charged
	// again.
	f := newFixture(t)
	tk := ticket("阪神", 11, 4, 5000)
	rec := model.NewRecord(tk, model.StatusUnverified, time.Now())
	require.NoError(t, f.ledger.Append(context.Background(), testDate, rec))
	f.observer.bets = []model.ExistingBet{existingFor(tk, "0099")}

	summary, err := f.engine().Run(context.Background(), testDate, []model.Ticket{tk})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyPurchased)
	assert.Empty(t, f.funder.calls)
	assert.Empty(t, f.runner.calls)
}

func TestRunInquiryFailureAbortsBeforeAnyCharge(t *testing.T) {
	f := newFixture(t)
	f.observer.err = errors.New("terminal unavailable")

	_, err := f.engine().Run(context.Background(), testDate, []model.Ticket{ticket("東京", 1, 3, 1000)})
	require.Error(t, err)
	assert.Empty(t, f.funder.calls)
	assert.Empty(t, f.runner.calls)
}

func TestRunFundingFailureAbortsBeforeSubmission(t *testing.T) {
	f := newFixture(t)
	f.funder.err = errors.New("deposit rejected")
	f.funder.result = funding.Result{State: funding.StateDeposit}

	_, err := f.engine().Run(context.Background(), testDate, []model.Ticket{ticket("東京", 1, 3, 1000)})
	require.Error(t, err)
	assert.Empty(t, f.runner.calls)
}

func TestRunDryRunNeverFundsOrSubmits(t *testing.T) {
	f := newFixture(t)
	tickets := []model.Ticket{ticket("東京", 1, 3, 1000)}

	summary, err := f.engine(WithDryRun(true)).Run(context.Background(), testDate, tickets)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, tickets, summary.ToPurchase)
	assert.Empty(t, f.funder.calls)
	assert.Empty(t, f.runner.calls)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine().Run(context.Background(), "2024-01-06", nil)
	assert.Error(t, err, "date must be YYYYMMDD")

	_, err = f.engine().Run(context.Background(), testDate, []model.Ticket{ticket("東京", 1, 3, 150)})
	assert.Error(t, err, "amount must be a multiple of the bet unit")
	assert.Empty(t, f.runner.calls)
}

func TestRunPersistsSummary(t *testing.T) {
	f := newFixture(t)
	f.runner.stats = executor.Stats{Purchased: 1}
	tickets := []model.Ticket{ticket("東京", 1, 3, 1000)}

	summary, err := f.engine().Run(context.Background(), testDate, tickets)
	require.NoError(t, err)

	data, _, err := f.objects.Get(context.Background(), ResultKey(testDate, summary.RunID))
	require.NoError(t, err)
	var stored Summary
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, summary.RunID, stored.RunID)
	assert.Equal(t, executor.Stats{Purchased: 1}, stored.Stats)
	assert.False(t, stored.FinishedAt.IsZero())
}

func TestRunNothingToPurchase(t *testing.T) {
	f := newFixture(t)
	tk := ticket("東京", 1, 3, 1000)
	f.observer.bets = []model.ExistingBet{existingFor(tk, "0001")}

	summary, err := f.engine().Run(context.Background(), testDate, []model.Ticket{tk})
	require.NoError(t, err)
	assert.Empty(t, summary.ToPurchase)
	assert.Empty(t, f.funder.calls)
	assert.Empty(t, f.runner.calls)
}
