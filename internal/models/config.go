package models

// Config holds the application configuration
type Config struct {
	Telegram      TelegramConfig `json:"telegram"`
	Database      DatabaseConfig `json:"database"`
	Routes        RoutesConfig   `json:"routes"`
	Retry         RetryConfig    `json:"retry"`
	Server        ServerConfig   `json:"server"`
	Tracing       TracingConfig  `json:"tracing"`
	LogLevel      string         `json:"log_level"`
	RetentionDays int            `json:"retentionDays"`

	// MediaGroupTimeoutSec is the inactivity window for album buffering.
	MediaGroupTimeoutSec int `json:"mediaGroupTimeoutSec"`
}

// TelegramConfig holds Bot API related configuration
type TelegramConfig struct {
	APIBaseURL     string `json:"api_base_url"`
	OwnerID        int64  `json:"owner_id"`
	PollTimeoutSec int    `json:"pollTimeoutSec"`
	HTTPTimeoutSec int    `json:"httpTimeoutSec"`
	UpdatesLimit   int    `json:"updatesLimit"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// RoutesConfig holds the location of the persisted route store
type RoutesConfig struct {
	Path string `json:"path"`
}

// RetryConfig holds forward retry related configuration
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// ServerConfig holds the health/metrics HTTP server configuration
type ServerConfig struct {
	Port                 int `json:"port"`
	CleanupIntervalHours int `json:"cleanupIntervalHours"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	ServiceName  string  `json:"service_name"`
	Environment  string  `json:"environment"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
