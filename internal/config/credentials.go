package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Credentials holds the terminal login credentials and notification token.
// They are injected from the environment and passed explicitly to the
// components that need them; nothing in the engine reads them ambiently.
type Credentials struct {
	// Two-stage terminal login: the INET-ID gates the first screen, the
	// subscriber number, PIN and P-ARS number gate the second.
	INETID       string `env:"AKATSUKI_INET_ID,required"`
	SubscriberID string `env:"AKATSUKI_SUBSCRIBER_ID,required"`
	PIN          string `env:"AKATSUKI_PIN,required"`
	PARS         string `env:"AKATSUKI_PARS,required"`

	// SlackToken is optional; notifications are disabled without it.
	SlackToken string `env:"AKATSUKI_SLACK_TOKEN"`
}

// LoadCredentials reads credentials from the environment.
func LoadCredentials() (*Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return nil, fmt.Errorf("load credentials from env: %w", err)
	}
	return &creds, nil
}
