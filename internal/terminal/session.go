package terminal

import (
	"context"
	"fmt"
)

// Login performs the two-stage terminal login and establishes the session.
// A rejected stage is an authentication failure, fatal to the run.
func (c *Client) Login(ctx context.Context) error {
	c.logger.Info("logging in to terminal", "base_url", c.baseURL)

	var stage1 loginResponse
	err := c.post(ctx, "/api/login/inet", inetLoginRequest{INETID: c.creds.INETID}, &stage1)
	if err != nil {
		return fmt.Errorf("login stage 1: %w", err)
	}
	if stage1.Status != "ok" {
		return fmt.Errorf("login stage 1 rejected (%s): %w", stage1.Message, ErrAuthentication)
	}

	var stage2 loginResponse
	err = c.post(ctx, "/api/login/subscriber", subscriberLoginRequest{
		SubscriberID: c.creds.SubscriberID,
		PIN:          c.creds.PIN,
		PARS:         c.creds.PARS,
	}, &stage2)
	if err != nil {
		return fmt.Errorf("login stage 2: %w", err)
	}
	if stage2.Status != "ok" {
		return fmt.Errorf("login stage 2 rejected (%s): %w", stage2.Message, ErrAuthentication)
	}

	c.loggedIn = true
	c.logger.Info("terminal login completed")
	return nil
}

// LoggedIn reports whether the session was established and has not been
// rejected since.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}
