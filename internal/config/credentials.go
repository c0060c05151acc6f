package config

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brilliance/hwachat/internal/models"
)

// Credentials are the connection-time parameters for the realtime
// channel and the bearer credential for REST calls. They travel as
// query parameters / headers, never in message bodies.
type Credentials struct {
	Token         string
	ApplicationID string
}

// CredentialsFromConfig extracts and validates credentials.
func CredentialsFromConfig(cfg Config) (Credentials, error) {
	creds := Credentials{
		Token:         cfg.Token,
		ApplicationID: cfg.ApplicationID,
	}
	if err := ValidateCredentials(creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// ValidateCredentials checks that both credential parts are present and
// that the application id is a well-formed UUID.
func ValidateCredentials(creds Credentials) error {
	if creds.Token == "" {
		return fmt.Errorf("missing token: set %s or run 'hwachat config set token <value>'", EnvToken)
	}
	if creds.ApplicationID == "" {
		return fmt.Errorf("missing application id: set %s or run 'hwachat config set app-id <value>'", EnvAppID)
	}
	if _, err := uuid.Parse(creds.ApplicationID); err != nil {
		return fmt.Errorf("application id %q is not a valid UUID: %w", creds.ApplicationID, err)
	}
	return nil
}

// RealtimeHostOrDefault returns the configured realtime host or the
// production fallback.
func (c Config) RealtimeHostOrDefault() string {
	if c.RealtimeHost != "" {
		return c.RealtimeHost
	}
	return models.DefaultRealtimeHost
}

// APIBaseOrDefault returns the REST base URL, defaulting to the
// realtime host.
func (c Config) APIBaseOrDefault() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return c.RealtimeHostOrDefault()
}
