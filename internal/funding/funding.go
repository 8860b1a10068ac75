// Package funding makes sure the terminal account holds enough balance
// for a run before any bet is submitted. It drives a small state machine:
// check the balance, deposit the shortfall if there is one, then poll the
// balance until the deposit is reflected or the attempts run out.
package funding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/terminal"
)

// State names the step the funding flow is in. It is reported in the
// result so callers can log and notify what actually happened.
type State string

const (
	StateCheckBalance       State = "CHECK_BALANCE"
	StateDeposit            State = "DEPOSIT"
	StateVerifyDeposit      State = "VERIFY_DEPOSIT"
	StateProceed            State = "PROCEED"
	StateProceedWithWarning State = "PROCEED_WITH_WARNING"
)

// Result records how the funding flow concluded.
type Result struct {
	State     State
	Balance   int // last observed balance in yen
	TotalCost int
	Deposited int // 0 when no deposit was needed
}

// Funder tops up the terminal account ahead of a run.
type Funder struct {
	account     terminal.Account
	maxAttempts int
	delay       time.Duration
	logger      *slog.Logger
}

// Option configures a Funder.
type Option func(*Funder)

// WithVerification sets how many times and how often the balance is
// re-read after a deposit.
func WithVerification(maxAttempts int, delay time.Duration) Option {
	return func(f *Funder) {
		if maxAttempts > 0 {
			f.maxAttempts = maxAttempts
		}
		if delay > 0 {
			f.delay = delay
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Funder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Funder backed by the given account operations.
func New(account terminal.Account, opts ...Option) *Funder {
	f := &Funder{
		account:     account,
		maxAttempts: 5,
		delay:       3 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ensure checks that the account can cover every ticket in toPurchase
// and deposits the shortfall when it cannot. The deposit is requested at
// most once per call. A deposit that is accepted but never shows up in
// the balance does not fail the run: the executor re-checks the balance
// before each submission, so Ensure returns PROCEED_WITH_WARNING and
// lets the per-ticket guard decide.
func (f *Funder) Ensure(ctx context.Context, toPurchase []model.Ticket) (Result, error) {
	totalCost := 0
	for _, t := range toPurchase {
		totalCost += t.Amount
	}
	res := Result{State: StateCheckBalance, TotalCost: totalCost}
	if totalCost == 0 {
		res.State = StateProceed
		return res, nil
	}

	balance, err := f.account.Balance(ctx)
	if err != nil {
		return res, fmt.Errorf("funding: check balance: %w", err)
	}
	res.Balance = balance
	f.logger.Info("balance checked", "balance", balance, "total_cost", totalCost)

	shortfall := totalCost - balance
	if shortfall <= 0 {
		res.State = StateProceed
		return res, nil
	}

	res.State = StateDeposit
	f.logger.Info("depositing shortfall", "shortfall", shortfall)
	if err := f.account.Deposit(ctx, shortfall); err != nil {
		return res, fmt.Errorf("funding: deposit %d yen: %w", shortfall, err)
	}
	res.Deposited = shortfall

	res.State = StateVerifyDeposit
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(f.delay):
		}

		balance, err := f.account.Balance(ctx)
		if err != nil {
			f.logger.Warn("balance re-check failed during deposit verification",
				"attempt", attempt, "error", err)
			continue
		}
		res.Balance = balance
		if balance >= totalCost {
			f.logger.Info("deposit reflected", "balance", balance, "attempt", attempt)
			res.State = StateProceed
			return res, nil
		}
		f.logger.Info("deposit not yet reflected", "balance", balance, "attempt", attempt)
	}

	f.logger.Warn("deposit accepted but not reflected in balance",
		"deposited", shortfall, "last_balance", res.Balance)
	res.State = StateProceedWithWarning
	return res, nil
}
