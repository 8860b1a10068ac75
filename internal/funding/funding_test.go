package funding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyohei-t/akatsuki/internal/model"
)

// fakeAccount scripts balance reads and records deposits.
type fakeAccount struct {
	balances   []int // consumed in order, last value repeats
	balanceErr error
	depositErr error
	deposits   []int
	reads      int
}

func (a *fakeAccount) Balance(ctx context.Context) (int, error) {
	if a.balanceErr != nil {
		return 0, a.balanceErr
	}
	i := a.reads
	if i >= len(a.balances) {
		i = len(a.balances) - 1
	}
	a.reads++
	return a.balances[i], nil
}

func (a *fakeAccount) Deposit(ctx context.Context, amount int) error {
	if a.depositErr != nil {
		return a.depositErr
	}
	a.deposits = append(a.deposits, amount)
	return nil
}

func tickets(amounts ...int) []model.Ticket {
	var out []model.Ticket
	for i, amount := range amounts {
		out = append(out, model.Ticket{
			RaceCourse: "東京", RaceNumber: i + 1, BetType: "単勝",
			HorseNumber: 1, Amount: amount,
		})
	}
	return out
}

func TestEnsureSufficientBalance(t *testing.T) {
	account := &fakeAccount{balances: []int{10000}}
	f := New(account, WithVerification(3, time.Millisecond))

	res, err := f.Ensure(context.Background(), tickets(3000, 4000))
	require.NoError(t, err)
	assert.Equal(t, StateProceed, res.State)
	assert.Equal(t, 7000, res.TotalCost)
	assert.Empty(t, account.deposits, "no deposit when the balance covers the run")
}

func TestEnsureNoTicketsSkipsBalanceCheck(t *testing.T) {
	account := &fakeAccount{balanceErr: errors.New("unreachable")}
	f := New(account)

	res, err := f.Ensure(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateProceed, res.State)
}

func TestEnsureDepositsExactShortfall(t *testing.T) {
	account := &fakeAccount{balances: []int{2000, 7000}}
	f := New(account, WithVerification(3, time.Millisecond))

	res, err := f.Ensure(context.Background(), tickets(3000, 4000))
	require.NoError(t, err)
	assert.Equal(t, StateProceed, res.State)
	assert.Equal(t, []int{5000}, account.deposits)
	assert.Equal(t, 5000, res.Deposited)
	assert.Equal(t, 7000, res.Balance)
}

func TestEnsureDepositFailureAborts(t *testing.T) {
	account := &fakeAccount{balances: []int{1000}, depositErr: errors.New("bank link unavailable")}
	f := New(account, WithVerification(3, time.Millisecond))

	res, err := f.Ensure(context.Background(), tickets(5000))
	require.Error(t, err)
	assert.Equal(t, StateDeposit, res.State)
}

func TestEnsureUnreflectedDepositWarns(t *testing.T) {
	// Balance never moves after the deposit. The run still proceeds; the
	// executor guards each submission with its own balance check.
	account := &fakeAccount{balances: []int{1000}}
	f := New(account, WithVerification(3, time.Millisecond))

	res, err := f.Ensure(context.Background(), tickets(5000))
	require.NoError(t, err)
	assert.Equal(t, StateProceedWithWarning, res.State)
	assert.Equal(t, []int{4000}, account.deposits)
	assert.Equal(t, 4, account.reads, "initial read plus three verification reads")
}

func TestEnsureVerificationIsContextAware(t *testing.T) {
	account := &fakeAccount{balances: []int{1000}}
	f := New(account, WithVerification(100, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Ensure(ctx, tickets(5000))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureBalanceCheckErrorIsFatal(t *testing.T) {
	account := &fakeAccount{balanceErr: errors.New("terminal down")}
	f := New(account)

	res, err := f.Ensure(context.Background(), tickets(100))
	require.Error(t, err)
	assert.Equal(t, StateCheckBalance, res.State)
	assert.Empty(t, account.deposits)
}
