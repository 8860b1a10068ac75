package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultSlackBaseURL = "https://slack.com/api"

// Slack posts messages through chat.postMessage. Routine messages go to
// the bets channel, alerts to the alerts channel.
type Slack struct {
	baseURL       string
	token         string
	betsChannel   string
	alertsChannel string
	httpClient    *http.Client
	logger        *slog.Logger
}

// SlackOption configures a Slack notifier.
type SlackOption func(*Slack)

// WithBaseURL overrides the Slack API endpoint. Used in tests.
func WithBaseURL(baseURL string) SlackOption {
	return func(s *Slack) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) SlackOption {
	return func(s *Slack) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SlackOption {
	return func(s *Slack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSlack creates a Slack notifier. The alerts channel falls back to the
// bets channel when empty.
func NewSlack(token, betsChannel, alertsChannel string, opts ...SlackOption) *Slack {
	if alertsChannel == "" {
		alertsChannel = betsChannel
	}
	s := &Slack{
		baseURL:       defaultSlackBaseURL,
		token:         token,
		betsChannel:   betsChannel,
		alertsChannel: alertsChannel,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Slack) Post(ctx context.Context, text string) {
	s.send(ctx, s.betsChannel, text)
}

func (s *Slack) Alert(ctx context.Context, text string) {
	s.send(ctx, s.alertsChannel, ":rotating_light: "+text)
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Slack) send(ctx context.Context, channel, text string) {
	if err := s.postMessage(ctx, channel, text); err != nil {
		s.logger.Warn("slack notification dropped", "channel", channel, "error", err)
	}
}

func (s *Slack) postMessage(ctx context.Context, channel, text string) error {
	body, err := json.Marshal(postMessageRequest{Channel: channel, Text: text})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting message: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var out postMessageResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack rejected message: %s", out.Error)
	}
	return nil
}
