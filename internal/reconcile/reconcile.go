// Package reconcile matches tickets against the bets the remote terminal
// says it has recorded.
//
// Reconciliation is the first idempotency gate of a run: a ticket the
// terminal already knows about is never submitted again. The matching is
// pure and deterministic; the same inputs always classify the same way.
package reconcile

import "github.com/kyohei-t/akatsuki/internal/model"

// Status classifies one ticket against the observed bets.
type Status string

const (
	// AlreadyPurchased: an observed bet matches the ticket on the match
	// key. The ticket must never reach the purchase executor.
	AlreadyPurchased Status = "ALREADY_PURCHASED"

	// NotPurchased: no observed bet matches; the ticket is still due.
	NotPurchased Status = "NOT_PURCHASED"
)

// Result is the classification of one ticket. Results are computed once
// per run and never persisted.
type Result struct {
	Ticket  model.Ticket
	Status  Status
	Matched *model.ExistingBet // Set when Status is AlreadyPurchased
}

// Reconcile classifies each ticket against the observed bets. Exact
// equality on (race_course, race_number, bet_type, horse_number, amount);
// no fuzzy or partial matching. Output order follows input order.
func Reconcile(tickets []model.Ticket, existing []model.ExistingBet) []Result {
	results := make([]Result, 0, len(tickets))

	for _, t := range tickets {
		res := Result{Ticket: t, Status: NotPurchased}
		for i := range existing {
			if t.MatchesBet(existing[i]) {
				matched := existing[i]
				res.Status = AlreadyPurchased
				res.Matched = &matched
				break
			}
		}
		results = append(results, res)
	}

	return results
}

// ToPurchase returns the tickets still due, preserving input order.
// Processing order matters downstream: the executor purchases strictly in
// this order.
func ToPurchase(results []Result) []model.Ticket {
	var due []model.Ticket
	for _, r := range results {
		if r.Status == NotPurchased {
			due = append(due, r.Ticket)
		}
	}
	return due
}
