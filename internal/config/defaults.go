package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTerminalTimeout = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = time.Second

	DefaultLedgerBackend = "fs"
	DefaultLedgerRoot    = "data"
	DefaultCacheTTL      = 5 * time.Minute

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 4
	DefaultMinConns  = 1

	DefaultVerifyMaxAttempts = 5
	DefaultVerifyDelay       = 3 * time.Second

	DefaultPaceInterval = 5 * time.Second

	DefaultHealthPort = 8080
	DefaultHealthPath = "/healthz"
)

func (c *Config) applyDefaults() {
	// Terminal defaults
	if c.Terminal.Timeout == 0 {
		c.Terminal.Timeout = DefaultTerminalTimeout
	}
	if c.Terminal.MaxRetries == 0 {
		c.Terminal.MaxRetries = DefaultMaxRetries
	}
	if c.Terminal.RetryBackoff == 0 {
		c.Terminal.RetryBackoff = DefaultRetryBackoff
	}

	// Ledger defaults
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = DefaultLedgerBackend
	}
	if c.Ledger.Root == "" {
		c.Ledger.Root = DefaultLedgerRoot
	}
	if c.Ledger.CacheTTL == 0 {
		c.Ledger.CacheTTL = DefaultCacheTTL
	}
	applyDBDefaults(&c.Ledger.Postgres)

	// Funding defaults
	if c.Funding.VerifyMaxAttempts == 0 {
		c.Funding.VerifyMaxAttempts = DefaultVerifyMaxAttempts
	}
	if c.Funding.VerifyDelay == 0 {
		c.Funding.VerifyDelay = DefaultVerifyDelay
	}

	// Executor defaults
	if c.Executor.PaceInterval == 0 {
		c.Executor.PaceInterval = DefaultPaceInterval
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
