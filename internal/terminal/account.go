package terminal

import (
	"context"
	"fmt"
)

// Balance returns the account balance in yen. The balance shown by the
// terminal may lag behind a deposit; callers that need certainty poll it.
func (c *Client) Balance(ctx context.Context) (int, error) {
	var resp balanceResponse
	if err := c.get(ctx, "/api/account/balance", &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return resp.Balance, nil
}

// Deposit instructs the terminal to move amount yen into the account.
// The request is sent exactly once: a deposit moves real money, so a
// transport timeout is reported to the caller instead of being retried.
func (c *Client) Deposit(ctx context.Context, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	c.logger.Info("requesting deposit", "amount", amount)

	var resp depositResponse
	err := c.doRequest(ctx, "POST", "/api/account/deposit", depositRequest{
		Amount: amount,
		PIN:    c.creds.PIN,
	}, &resp)
	if err != nil {
		return fmt.Errorf("deposit %d: %w", amount, err)
	}
	if !resp.Accepted {
		return fmt.Errorf("deposit %d rejected: %s", amount, resp.Message)
	}

	c.logger.Info("deposit accepted", "amount", amount)
	return nil
}
