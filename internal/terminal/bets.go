package terminal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kyohei-t/akatsuki/internal/model"
)

// FetchBets returns the bets the terminal has recorded for the date.
func (c *Client) FetchBets(ctx context.Context, date string) ([]model.ExistingBet, error) {
	var resp betsResponse
	if err := c.get(ctx, "/api/bets?date="+date, &resp); err != nil {
		return nil, fmt.Errorf("fetch bets for %s: %w", date, err)
	}

	bets := make([]model.ExistingBet, 0, len(resp.Bets))
	for _, b := range resp.Bets {
		bets = append(bets, model.ExistingBet{
			ReceiptID:   b.ReceiptID,
			RaceCourse:  b.RaceCourse,
			RaceNumber:  b.RaceNumber,
			BetType:     b.BetType,
			HorseNumber: b.HorseNumber,
			Amount:      b.Amount,
		})
	}

	c.logger.Debug("fetched recorded bets", "date", date, "count", len(bets))
	return bets, nil
}

// PlaceBet submits one ticket and classifies the result. The submission
// is sent exactly once, since re-sending a timed-out submit could charge
// twice. After an accepted submission the outcome is always corroborated
// by an independent inquiry:
//
//   - submit accepted + inquiry shows the bet  -> SUCCESS
//   - terminal explicitly rejected the ticket  -> FAILED
//   - submit accepted but the inquiry cannot
//     corroborate it                           -> UNVERIFIED
//
// Only session-level failures are returned as errors.
func (c *Client) PlaceBet(ctx context.Context, ticket model.Ticket) (model.Outcome, error) {
	// The independent confirmation step scans today's recorded bets, so a
	// ticket that already matches a recorded bet would be indistinguishable
	// from this submission. Reconciliation upstream guarantees that case
	// never reaches here.

	var resp submitResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/bets/submit", submitRequest{
		RaceCourse:  ticket.RaceCourse,
		RaceNumber:  ticket.RaceNumber,
		BetType:     ticket.BetType,
		HorseNumber: ticket.HorseNumber,
		Amount:      ticket.Amount,
	}, &resp)

	switch {
	case err == nil && resp.Accepted:
		// Fall through to the confirmation step.
	case err == nil:
		c.logger.Warn("bet rejected by terminal", "ticket", ticket.String(), "reason", resp.Reason)
		return model.Rejected(resp.Reason), nil
	case errors.Is(err, ErrAuthentication):
		return model.Outcome{}, err
	default:
		var te *TerminalError
		if errors.As(err, &te) && te.StatusCode < 500 {
			// Explicit client-side rejection before the bet was taken.
			c.logger.Warn("bet submission rejected", "ticket", ticket.String(), "error", err)
			return model.Rejected(te.Message), nil
		}
		// The submission may or may not have been received. Do not resend.
		c.logger.Error("bet submission outcome unknown", "ticket", ticket.String(), "error", err)
		return model.Unverified(fmt.Sprintf("submit did not complete: %v", err)), nil
	}

	return c.confirmBet(ctx, ticket), nil
}

// confirmBet corroborates an accepted submission via the bet inquiry.
func (c *Client) confirmBet(ctx context.Context, ticket model.Ticket) model.Outcome {
	bets, err := c.FetchBets(ctx, c.nowDate())
	if err != nil {
		// Screen said success, inquiry could not corroborate. Never
		// upgraded, never downgraded, never retried in-run.
		return model.Unverified(fmt.Sprintf("inquiry failed after submission: %v", err))
	}

	for _, b := range bets {
		if ticket.MatchesBet(b) {
			c.logger.Info("bet confirmed by inquiry", "ticket", ticket.String(), "receipt", b.ReceiptID)
			return model.Success(b.ReceiptID)
		}
	}

	return model.Unverified("inquiry does not show the submitted bet")
}
