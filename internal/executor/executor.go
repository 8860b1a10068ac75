// Package executor submits the to-purchase list to the terminal, one
// ticket at a time. Every attempt is recorded in the ledger before the
// next submission starts, so a crash mid-run never loses track of a
// charge that may already have happened.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kyohei-t/akatsuki/internal/ledger"
	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/notify"
	"github.com/kyohei-t/akatsuki/internal/terminal"
)

// Stats counts what happened during a run.
type Stats struct {
	Purchased  int
	Failed     int
	Unverified int
	Skipped    int // not submitted, e.g. balance guard
}

// Executor runs purchases strictly sequentially.
type Executor struct {
	placer   terminal.Placer
	account  terminal.Account
	ledger   *ledger.Store
	notifier notify.Notifier
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithPaceInterval sets the minimum interval between submissions.
func WithPaceInterval(interval time.Duration) Option {
	return func(e *Executor) {
		if interval > 0 {
			e.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the attempt timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Executor.
func New(placer terminal.Placer, account terminal.Account, ledgerStore *ledger.Store, notifier notify.Notifier, opts ...Option) *Executor {
	e := &Executor{
		placer:   placer,
		account:  account,
		ledger:   ledgerStore,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute submits each ticket in order and records the outcome under
// date. It stops early only when the error makes continuing unsafe: an
// expired session, a cancelled context, or a ledger that can no longer
// be written. A terminal that rejects one ticket does not stop the rest.
func (e *Executor) Execute(ctx context.Context, date string, toPurchase []model.Ticket) (Stats, error) {
	var stats Stats
	for i, ticket := range toPurchase {
		if err := e.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		// The pre-run funding check can be stale by now. Read the
		// authoritative balance before committing money.
		balance, err := e.account.Balance(ctx)
		if err != nil {
			if errors.Is(err, terminal.ErrAuthentication) {
				return stats, err
			}
			e.logger.Warn("balance check failed, skipping ticket",
				"ticket", ticket.String(), "error", err)
			e.notifier.Alert(ctx, fmt.Sprintf("skipped %s: balance check failed", ticket))
			stats.Skipped++
			continue
		}
		if balance < ticket.Amount {
			e.logger.Warn("insufficient balance, skipping ticket",
				"ticket", ticket.String(), "balance", balance)
			e.notifier.Alert(ctx, fmt.Sprintf("skipped %s: balance %d yen is short", ticket, balance))
			stats.Skipped++
			continue
		}

		e.logger.Info("placing bet", "ticket", ticket.String(), "position", i+1, "total", len(toPurchase))
		outcome, err := e.placer.PlaceBet(ctx, ticket)
		if err != nil {
			if errors.Is(err, terminal.ErrAuthentication) || ctx.Err() != nil {
				return stats, err
			}
			// Ambiguous transport failures are already classified as
			// unverified outcomes by the placer. An error here happened
			// before anything was sent, so recording a failure is safe.
			outcome = model.Rejected(err.Error())
		}

		rec := model.NewRecord(ticket, outcome.RecordStatus(), e.now())
		rec.ReceiptID = outcome.ReceiptID
		rec.ErrorMessage = outcome.Reason
		if err := e.ledger.Append(ctx, date, rec); err != nil {
			// Continuing without a durable record risks a double charge
			// on the next run.
			return stats, fmt.Errorf("recording %s: %w", ticket, err)
		}

		switch outcome.Kind {
		case model.OutcomeSuccess:
			stats.Purchased++
			e.notifier.Post(ctx, fmt.Sprintf("purchased %s (receipt %s)", ticket, outcome.ReceiptID))
		case model.OutcomeFailed:
			stats.Failed++
			e.notifier.Alert(ctx, fmt.Sprintf("failed %s: %s", ticket, outcome.Reason))
		case model.OutcomeUnverified:
			stats.Unverified++
			e.notifier.Alert(ctx, fmt.Sprintf("unverified %s: %s", ticket, outcome.Reason))
		}
	}
	return stats, nil
}
