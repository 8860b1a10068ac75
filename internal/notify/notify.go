// Package notify posts run progress to Slack. Delivery is best effort:
// a failed notification is logged and dropped, it never fails a run.
package notify

import (
	"context"
)

// Notifier publishes run progress and alerts.
type Notifier interface {
	// Post sends a routine message to the bets channel.
	Post(ctx context.Context, text string)
	// Alert sends a message that needs operator attention.
	Alert(ctx context.Context, text string)
}

// Nop discards all notifications. Used when no Slack token is configured
// and in tests.
type Nop struct{}

func (Nop) Post(ctx context.Context, text string)  {}
func (Nop) Alert(ctx context.Context, text string) {}
