package terminal

import (
	"context"
	"errors"

	"github.com/kyohei-t/akatsuki/internal/model"
)

// ErrAuthentication marks session-level failures: rejected login, expired
// session, terminal lockout. It is fatal to the whole run; there is no
// per-ticket recovery from it.
var ErrAuthentication = errors.New("terminal: authentication failed")

// Observer reports the bets the terminal itself has recorded for a date.
// The local ledger alone cannot prove a bet was actually charged when the
// process crashed between submission and recording, so the observer is the
// single source of truth for "already charged".
type Observer interface {
	FetchBets(ctx context.Context, date string) ([]model.ExistingBet, error)
}

// Placer drives one purchase attempt through the terminal and classifies
// its outcome. Implementations must return an Outcome, not an error, for
// anything that happens after the submission went out: once submitted, the
// result is SUCCESS, FAILED, or UNVERIFIED, never abandoned.
type Placer interface {
	PlaceBet(ctx context.Context, ticket model.Ticket) (model.Outcome, error)
}

// Account exposes the terminal's balance and deposit operations.
type Account interface {
	Balance(ctx context.Context) (int, error)
	Deposit(ctx context.Context, amount int) error
}
