// Package engine orchestrates a purchase run: reconcile the request list
// against the terminal and the ledger, secure funding, execute what is
// left, and persist a run summary.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kyohei-t/akatsuki/internal/executor"
	"github.com/kyohei-t/akatsuki/internal/funding"
	"github.com/kyohei-t/akatsuki/internal/ledger"
	"github.com/kyohei-t/akatsuki/internal/model"
	"github.com/kyohei-t/akatsuki/internal/notify"
	"github.com/kyohei-t/akatsuki/internal/objstore"
	"github.com/kyohei-t/akatsuki/internal/reconcile"
	"github.com/kyohei-t/akatsuki/internal/terminal"
)

// Funder secures enough balance for the run.
type Funder interface {
	Ensure(ctx context.Context, toPurchase []model.Ticket) (funding.Result, error)
}

// Runner submits the to-purchase list and records outcomes.
type Runner interface {
	Execute(ctx context.Context, date string, toPurchase []model.Ticket) (executor.Stats, error)
}

// Summary is the outcome of one run. It is returned to the caller and
// persisted alongside the ledger.
type Summary struct {
	RunID            string         `json:"run_id"`
	TargetDate       string         `json:"target_date"`
	DryRun           bool           `json:"dry_run"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	Requested        int            `json:"requested"`
	AlreadyPurchased int            `json:"already_purchased"`
	ToPurchase       []model.Ticket `json:"to_purchase"`
	TotalCost        int            `json:"total_cost"`
	FundingState     funding.State  `json:"funding_state,omitempty"`
	Stats            executor.Stats `json:"stats"`
}

// Engine wires the run pipeline together.
type Engine struct {
	observer terminal.Observer
	funder   Funder
	runner   Runner
	ledger   *ledger.Store
	objects  objstore.Store
	notifier notify.Notifier
	logger   *slog.Logger
	dryRun   bool
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDryRun reconciles and reports but never deposits or submits.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the run timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine.
func New(observer terminal.Observer, funder Funder, runner Runner, ledgerStore *ledger.Store, objects objstore.Store, notifier notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		observer: observer,
		funder:   funder,
		runner:   runner,
		ledger:   ledgerStore,
		objects:  objects,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one purchase run for date. Tickets already visible on the
// terminal or recorded as purchased in the ledger are dropped before
// anything is charged, so re-running after a crash or retry is safe.
func (e *Engine) Run(ctx context.Context, date string, tickets []model.Ticket) (Summary, error) {
	summary := Summary{
		RunID:      uuid.NewString(),
		TargetDate: date,
		DryRun:     e.dryRun,
		StartedAt:  e.now(),
		Requested:  len(tickets),
	}

	if err := model.ValidateDate(date); err != nil {
		return summary, err
	}
	for _, t := range tickets {
		if err := t.Validate(); err != nil {
			return summary, fmt.Errorf("ticket %s: %w", t, err)
		}
	}

	e.notifier.Post(ctx, fmt.Sprintf("run %s started: %d tickets for %s",
		summary.RunID[:8], len(tickets), date))

	existing, err := e.observer.FetchBets(ctx, date)
	if err != nil {
		// Without the terminal's view there is no safe way to tell a
		// purchased ticket from an unpurchased one.
		e.notifier.Alert(ctx, fmt.Sprintf("run %s aborted: bet inquiry failed", summary.RunID[:8]))
		return summary, fmt.Errorf("fetching existing bets: %w", err)
	}
	e.logger.Info("fetched existing bets", "date", date, "count", len(existing))

	results := reconcile.Reconcile(tickets, existing)
	candidates := reconcile.ToPurchase(results)
	summary.AlreadyPurchased = len(tickets) - len(candidates)

	toPurchase, err := e.filterLedger(ctx, date, candidates)
	if err != nil {
		return summary, err
	}
	summary.AlreadyPurchased += len(candidates) - len(toPurchase)
	summary.ToPurchase = toPurchase
	for _, t := range toPurchase {
		summary.TotalCost += t.Amount
	}
	e.logger.Info("reconciliation complete",
		"requested", len(tickets),
		"already_purchased", summary.AlreadyPurchased,
		"to_purchase", len(toPurchase))

	if len(toPurchase) == 0 {
		e.notifier.Post(ctx, fmt.Sprintf("run %s: nothing to purchase", summary.RunID[:8]))
		return e.finish(ctx, summary)
	}

	if e.dryRun {
		e.logger.Info("dry run, skipping funding and submission",
			"would_purchase", len(toPurchase), "total_cost", summary.TotalCost)
		e.notifier.Post(ctx, fmt.Sprintf("run %s (dry run): would purchase %d tickets for %d yen",
			summary.RunID[:8], len(toPurchase), summary.TotalCost))
		return e.finish(ctx, summary)
	}

	fundingRes, err := e.funder.Ensure(ctx, toPurchase)
	summary.FundingState = fundingRes.State
	if err != nil {
		e.notifier.Alert(ctx, fmt.Sprintf("run %s aborted: funding failed", summary.RunID[:8]))
		return summary, err
	}
	if fundingRes.Deposited > 0 {
		e.notifier.Post(ctx, fmt.Sprintf("run %s: deposited %d yen (balance %d)",
			summary.RunID[:8], fundingRes.Deposited, fundingRes.Balance))
	}
	if fundingRes.State == funding.StateProceedWithWarning {
		e.notifier.Alert(ctx, fmt.Sprintf(
			"run %s: deposit of %d yen not yet reflected, proceeding with per-ticket checks",
			summary.RunID[:8], fundingRes.Deposited))
	}

	stats, err := e.runner.Execute(ctx, date, toPurchase)
	summary.Stats = stats
	if err != nil {
		e.notifier.Alert(ctx, fmt.Sprintf("run %s aborted mid-execution: %d purchased, %d failed, %d unverified",
			summary.RunID[:8], stats.Purchased, stats.Failed, stats.Unverified))
		return summary, err
	}

	e.notifier.Post(ctx, fmt.Sprintf("run %s complete: %d purchased, %d failed, %d unverified, %d skipped",
		summary.RunID[:8], stats.Purchased, stats.Failed, stats.Unverified, stats.Skipped))
	return e.finish(ctx, summary)
}

// filterLedger drops tickets the ledger already records as purchased.
// Failed and unverified records never block a retry.
func (e *Engine) filterLedger(ctx context.Context, date string, candidates []model.Ticket) ([]model.Ticket, error) {
	led, err := e.ledger.Load(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	var out []model.Ticket
	for _, t := range candidates {
		purchased := false
		for _, rec := range led.Tickets {
			if rec.Status == model.StatusPurchased && t.MatchesRecord(rec) {
				purchased = true
				break
			}
		}
		if purchased {
			e.logger.Info("ledger records ticket as purchased, skipping", "ticket", t.String())
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// ResultKey is the object key a run summary is stored under.
func ResultKey(date, runID string) string {
	return "purchase-results/" + date + "/" + runID + ".json"
}

func (e *Engine) finish(ctx context.Context, summary Summary) (Summary, error) {
	summary.FinishedAt = e.now()
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return summary, fmt.Errorf("marshaling run summary: %w", err)
	}
	key := ResultKey(summary.TargetDate, summary.RunID)
	if err := e.objects.Put(ctx, key, data, ""); err != nil && !errors.Is(err, objstore.ErrETagMismatch) {
		// The run itself succeeded. Losing the report is worth a
		// warning, not a failed exit.
		e.logger.Warn("persisting run summary failed", "key", key, "error", err)
	}
	return summary, nil
}
