package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyohei-t/akatsuki/internal/ledger"
	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/notify"
	"github.com/kyohei-t/akatsuki/internal/objstore"
	"github.com/kyohei-t/akatsuki/internal/terminal"
)

const testDate = "20240106"

// scriptedPlacer returns one scripted result per call, in order.
type scriptedPlacer struct {
	outcomes []model.Outcome
	errs     []error
	calls    []model.Ticket
}

func (p *scriptedPlacer) PlaceBet(ctx context.Context, t model.Ticket) (model.Outcome, error) {
	i := len(p.calls)
	p.calls = append(p.calls, t)
	if i < len(p.errs) && p.errs[i] != nil {
		return model.Outcome{}, p.errs[i]
	}
	return p.outcomes[i], nil
}

type fixedAccount struct {
	balance int
	err     error
}

func (a *fixedAccount) Balance(ctx context.Context) (int, error) { return a.balance, a.err }
func (a *fixedAccount) Deposit(ctx context.Context, amount int) error {
	return errors.New("deposit not expected during execution")
}

func newTestLedger(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := objstore.NewFS(t.TempDir())
	require.NoError(t, err)
	return ledger.NewStore(store, time.Minute)
}

func newExecutor(placer terminal.Placer, account terminal.Account, store *ledger.Store) *Executor {
	return New(placer, account, store, notify.Nop{}, WithPaceInterval(time.Millisecond))
}

func makeTickets(n int) []model.Ticket {
	var out []model.Ticket
	for i := 0; i < n; i++ {
		out = append(out, model.Ticket{
			RaceCourse: "中山", RaceNumber: i + 1, BetType: "単勝",
			HorseNumber: 5, Amount: 1000,
		})
	}
	return out
}

func TestExecuteRecordsEveryOutcome(t *testing.T) {
	placer := &scriptedPlacer{outcomes: []model.Outcome{
		model.Success("0001"),
		model.Rejected("betting window closed"),
		model.Unverified("inquiry unavailable"),
	}}
	store := newTestLedger(t)
	e := newExecutor(placer, &fixedAccount{balance: 100000}, store)

	stats, err := e.Execute(context.Background(), testDate, makeTickets(3))
	require.NoError(t, err)
	assert.Equal(t, Stats{Purchased: 1, Failed: 1, Unverified: 1}, stats)

	led, err := store.Load(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, led.Tickets, 3)
	assert.Equal(t, model.StatusPurchased, led.Tickets[0].Status)
	assert.Equal(t, "0001", led.Tickets[0].ReceiptID)
	assert.Equal(t, model.StatusFailed, led.Tickets[1].Status)
	assert.Equal(t, "betting window closed", led.Tickets[1].ErrorMessage)
	assert.Equal(t, model.StatusUnverified, led.Tickets[2].Status)
}

func TestExecuteSequentialOrder(t *testing.T) {
	tickets := makeTickets(4)
	placer := &scriptedPlacer{outcomes: []model.Outcome{
		model.Success("1"), model.Success("2"), model.Success("3"), model.Success("4"),
	}}
	e := newExecutor(placer, &fixedAccount{balance: 100000}, newTestLedger(t))

	_, err := e.Execute(context.Background(), testDate, tickets)
	require.NoError(t, err)
	assert.Equal(t, tickets, placer.calls)
}

func TestExecuteSkipsOnInsufficientBalance(t *testing.T) {
	placer := &scriptedPlacer{}
	e := newExecutor(placer, &fixedAccount{balance: 500}, newTestLedger(t))

	stats, err := e.Execute(context.Background(), testDate, makeTickets(2))
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 2}, stats)
	assert.Empty(t, placer.calls, "no submission when the balance cannot cover the ticket")
}

func TestExecuteSkipsOnBalanceCheckError(t *testing.T) {
	placer := &scriptedPlacer{}
	e := newExecutor(placer, &fixedAccount{err: errors.New("terminal busy")}, newTestLedger(t))

	stats, err := e.Execute(context.Background(), testDate, makeTickets(1))
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 1}, stats)
	assert.Empty(t, placer.calls)
}

func TestExecuteAuthErrorAbortsRun(t *testing.T) {
	placer := &scriptedPlacer{
		outcomes: []model.Outcome{{}, {}},
		errs:     []error{fmt.Errorf("session: %w", terminal.ErrAuthentication), nil},
	}
	store := newTestLedger(t)
	e := newExecutor(placer, &fixedAccount{balance: 100000}, store)

	_, err := e.Execute(context.Background(), testDate, makeTickets(2))
	assert.ErrorIs(t, err, terminal.ErrAuthentication)
	assert.Len(t, placer.calls, 1, "remaining tickets are not attempted")

	led, err := store.Load(context.Background(), testDate)
	require.NoError(t, err)
	assert.Empty(t, led.Tickets)
}

func TestExecutePreSubmitErrorRecordsFailureAndContinues(t *testing.T) {
	placer := &scriptedPlacer{
		outcomes: []model.Outcome{{}, model.Success("0002")},
		errs:     []error{errors.New("building request"), nil},
	}
	store := newTestLedger(t)
	e := newExecutor(placer, &fixedAccount{balance: 100000}, store)

	stats, err := e.Execute(context.Background(), testDate, makeTickets(2))
	require.NoError(t, err)
	assert.Equal(t, Stats{Purchased: 1, Failed: 1}, stats)

	led, err := store.Load(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, led.Tickets, 2)
	assert.Equal(t, model.StatusFailed, led.Tickets[0].Status)
	assert.Equal(t, model.StatusPurchased, led.Tickets[1].Status)
}

// failingLedgerStore wraps the object store so appends stop persisting.
type failingStore struct {
	objstore.Store
	fail bool
}

func (s *failingStore) Put(ctx context.Context, key string, data []byte, etag string) error {
	if s.fail {
		return errors.New("storage unavailable")
	}
	return s.Store.Put(ctx, key, data, etag)
}

func TestExecuteAbortsWhenLedgerWriteFails(t *testing.T) {
	fs, err := objstore.NewFS(t.TempDir())
	require.NoError(t, err)
	store := ledger.NewStore(&failingStore{Store: fs, fail: true}, time.Minute)

	placer := &scriptedPlacer{outcomes: []model.Outcome{model.Success("0001"), model.Success("0002")}}
	e := newExecutor(placer, &fixedAccount{balance: 100000}, store)

	stats, execErr := e.Execute(context.Background(), testDate, makeTickets(2))
	require.Error(t, execErr)
	assert.Equal(t, Stats{}, stats)
	assert.Len(t, placer.calls, 1, "the run must not outpace the ledger")
}

func TestExecuteStopsWhenContextCancelled(t *testing.T) {
	placer := &scriptedPlacer{outcomes: []model.Outcome{model.Success("0001")}}
	e := newExecutor(placer, &fixedAccount{balance: 100000}, newTestLedger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, testDate, makeTickets(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, placer.calls)
}
