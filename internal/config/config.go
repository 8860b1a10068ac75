package config

import "time"

// Config is the root configuration for a purchase engine run.
type Config struct {
	Terminal TerminalConfig `yaml:"terminal"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Funding  FundingConfig  `yaml:"funding"`
	Executor ExecutorConfig `yaml:"executor"`
	Notify   NotifyConfig   `yaml:"notify"`
	Health   HealthConfig   `yaml:"health"`
}

// TerminalConfig holds remote terminal session settings.
type TerminalConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`       // Per-request timeout
	MaxRetries   int           `yaml:"max_retries"`   // Per-step retry budget for transient errors
	RetryBackoff time.Duration `yaml:"retry_backoff"` // Initial backoff between retries
}

// LedgerConfig holds purchase ledger storage settings.
type LedgerConfig struct {
	// Backend selects the object store: "fs" or "postgres".
	Backend string `yaml:"backend"`

	// Root is the filesystem root for the "fs" backend.
	Root string `yaml:"root"`

	// CacheTTL bounds how long a loaded per-date ledger may be reused
	// without re-reading the store.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// FundingConfig holds balance verification settings for the deposit flow.
type FundingConfig struct {
	VerifyMaxAttempts int           `yaml:"verify_max_attempts"` // Balance polls after a deposit
	VerifyDelay       time.Duration `yaml:"verify_delay"`        // Fixed delay between polls
}

// ExecutorConfig holds per-ticket execution settings.
type ExecutorConfig struct {
	// PaceInterval is the minimum spacing between purchase attempts. The
	// terminal enforces a single active purchase flow, so attempts are
	// strictly sequential and deliberately paced.
	PaceInterval time.Duration `yaml:"pace_interval"`
}

// NotifyConfig holds Slack notification settings. The bot token itself
// comes from the environment, never from the config file.
type NotifyConfig struct {
	BetsChannel   string `yaml:"bets_channel"`
	AlertsChannel string `yaml:"alerts_channel"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
