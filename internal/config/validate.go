package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Terminal.BaseURL == "" {
		return errors.New("terminal.base_url is required")
	}
	if c.Terminal.MaxRetries < 0 {
		return errors.New("terminal.max_retries must be >= 0")
	}

	switch c.Ledger.Backend {
	case "fs":
		if c.Ledger.Root == "" {
			return errors.New("ledger.root is required for the fs backend")
		}
	case "postgres":
		if err := c.Ledger.Postgres.validate("ledger.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("ledger.backend must be \"fs\" or \"postgres\", got %q", c.Ledger.Backend)
	}

	if c.Funding.VerifyMaxAttempts < 1 {
		return errors.New("funding.verify_max_attempts must be >= 1")
	}
	if c.Funding.VerifyDelay <= 0 {
		return errors.New("funding.verify_delay must be > 0")
	}

	if c.Executor.PaceInterval < 0 {
		return errors.New("executor.pace_interval must be >= 0")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
