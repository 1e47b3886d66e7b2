package constants

import "time"

// Media group buffering defaults
const (
	// DefaultMediaGroupTimeout is the inactivity window after which a buffered
	// media group is considered complete. The Bot API delivers album items as
	// separate updates with no end-of-group marker, so this timeout is the
	// only completion signal.
	DefaultMediaGroupTimeout = 3 * time.Second

	// MaxMediaGroupSize is the Bot API limit on items per album; a group
	// reaching this size is flushed without waiting for the timer.
	MaxMediaGroupSize = 10
)

// Default retry configuration values
const (
	DefaultMaxRetries     = 3
	DefaultRetryBackoffMs = 1000
	DefaultMaxBackoffMs   = 60000
	DefaultRetentionDays  = 30
	DefaultServerPort     = 8082
)

// Default polling configuration values
const (
	DefaultPollTimeoutSec    = 30
	DefaultUpdatesLimit      = 100
	DefaultPollRetryAttempts = 5
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 35
	DefaultDatabaseRetryAttempts = 3
	DefaultGracefulShutdownSec   = 30
	DefaultCleanupIntervalHours  = 24
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	ServerErrorChannelSize       = 1
)

// Encryption settings
const (
	NonceSize            = 12
	KeyDerivationIters   = 100000
	EncryptionKeyEnvVar  = "TGRELAY_ENCRYPTION_SECRET"
	EncryptionFlagEnvVar = "TGRELAY_ENABLE_ENCRYPTION"
)
