package config

import (
	"encoding/json"
	"fmt"
	"os"

	"tgrelay/internal/constants"
	"tgrelay/internal/models"
	"tgrelay/internal/security"
)

var (
	ErrMissingOwnerID = models.ConfigError{Message: "missing owner ID"}
	ErrMissingDBPath  = models.ConfigError{Message: "missing database path"}
	ErrMissingRoutes  = models.ConfigError{Message: "missing route store path"}
)

func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Telegram.OwnerID == 0 {
		return ErrMissingOwnerID
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Routes.Path == "" {
		return ErrMissingRoutes
	}

	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeoutSec <= 0 {
		c.Telegram.PollTimeoutSec = constants.DefaultPollTimeoutSec
	}
	if c.Telegram.HTTPTimeoutSec <= 0 {
		// Must exceed the long-poll timeout or GetUpdates would be cut off
		c.Telegram.HTTPTimeoutSec = c.Telegram.PollTimeoutSec + 5
	}
	if c.Telegram.UpdatesLimit <= 0 {
		c.Telegram.UpdatesLimit = constants.DefaultUpdatesLimit
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxRetries
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}

	if c.MediaGroupTimeoutSec <= 0 {
		c.MediaGroupTimeoutSec = int(constants.DefaultMediaGroupTimeout.Seconds())
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.CleanupIntervalHours <= 0 {
		c.Server.CleanupIntervalHours = constants.DefaultCleanupIntervalHours
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("TELEGRAM_API_URL"); url != "" {
		c.Telegram.APIBaseURL = url
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if path := os.Getenv("ROUTES_PATH"); path != "" {
		c.Routes.Path = path
	}
}
