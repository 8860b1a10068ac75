package terminal

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Credentials holds the two-stage terminal login inputs. They are passed
// explicitly to the client constructor, never read from globals.
type Credentials struct {
	INETID       string // First screen
	SubscriberID string // Second screen
	PIN          string
	PARS         string
}

// Client drives one authenticated terminal session. The terminal enforces
// a single active purchase flow per session, so a Client must not be used
// for concurrent purchases.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration

	// nowDate yields the terminal-local calendar date (YYYYMMDD) used by
	// the post-submission confirmation inquiry.
	nowDate func() string

	loggedIn bool
}

// terminalTZ is the terminal's local time zone (JST).
var terminalTZ = time.FixedZone("JST", 9*60*60)

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a terminal session client. The session cookie jar is
// owned by the client; Login must be called before any other operation.
func NewClient(baseURL string, creds Credentials, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
		nowDate: func() string {
			return time.Now().In(terminalTZ).Format("20060102")
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the per-step retry configuration for transient errors.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached when
// the client has none, since the session lives in cookies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar, _ = cookiejar.New(nil)
		}
		c.httpClient = hc
	}
}

// WithDateFunc overrides the terminal-local date source.
func WithDateFunc(f func() string) ClientOption {
	return func(c *Client) {
		c.nowDate = f
	}
}
