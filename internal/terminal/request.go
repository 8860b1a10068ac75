package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// TerminalError represents an error response from the terminal gateway.
type TerminalError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *TerminalError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// doRequest performs a single request against the terminal gateway.
func (c *Client) doRequest(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Session rejection is fatal to the run, never retried.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.loggedIn = false
		return fmt.Errorf("%s %s: %w", method, path, ErrAuthentication)
	}

	if resp.StatusCode >= 400 {
		return &TerminalError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// doWithRetry performs a request with exponential backoff on transient
// errors. Authentication failures and explicit terminal rejections are
// returned immediately.
func (c *Client) doWithRetry(ctx context.Context, method, path string, payload, result any) error {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying terminal request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		err := c.doRequest(ctx, method, path, payload, result)
		if err == nil {
			return nil
		}

		lastErr = err

		if !retryable(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// retryable reports whether the step may be safely re-attempted.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAuthentication) {
		return false
	}

	var te *TerminalError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}

	// Transport-level failures (timeouts, resets) are transient.
	return true
}

// get performs a GET with retries.
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doWithRetry(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST with retries.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	return c.doWithRetry(ctx, http.MethodPost, path, payload, result)
}
