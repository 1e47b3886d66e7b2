package errors

import (
	"fmt"
	"time"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, value, message string) *AppError {
	return New(ErrCodeInvalidInput, message).
		WithContext("field", field).
		WithContext("value", value).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewNotConfiguredError signals that forwarding was attempted before both
// route endpoints were set. Expected steady state before setup, never
// surfaced to end users.
func NewNotConfiguredError(missing string) *AppError {
	return New(ErrCodeNotConfigured, fmt.Sprintf("%s is not configured", missing)).
		WithContext("missing", missing)
}

// NewPersistFailureError creates an error for a failed durable write of the
// route store. In-memory state has been rolled back by the caller.
func NewPersistFailureError(path string, err error) *AppError {
	return Wrap(err, ErrCodePersistFailure, "failed to persist routes").
		WithContext("path", path).
		WithUserMessage("Failed to save configuration, value was not changed")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewTelegramAPIError creates an error for a failed Bot API call. Rate limits
// (429), server errors (5xx) and request timeouts (408) are retryable;
// remaining 4xx responses are permanent.
func NewTelegramAPIError(method string, statusCode int, description string, err error) *AppError {
	code := ErrCodeTelegramAPI
	if statusCode == 429 {
		code = ErrCodeRateLimit
	}

	appErr := Wrap(err, code, fmt.Sprintf("telegram %s failed: %s", method, description)).
		WithContext("method", method).
		WithContext("status_code", statusCode)

	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}

	return appErr
}

// NewRateLimitError creates a retryable rate-limit error carrying the
// retry_after hint from the Bot API response.
func NewRateLimitError(method string, retryAfter time.Duration) *AppError {
	appErr := New(ErrCodeRateLimit, fmt.Sprintf("telegram %s rate limited", method)).
		WithContext("method", method).
		WithContext("retry_after", retryAfter.String())
	appErr.Retryable = true
	return appErr
}

// NewExhaustedError creates the terminal error for a forward whose retry
// budget ran out, carrying the last underlying cause.
func NewExhaustedError(attempts int, lastErr error) *AppError {
	return Wrap(lastErr, ErrCodeForwardExhausted,
		fmt.Sprintf("forward failed after %d attempts", attempts)).
		WithContext("attempts", attempts)
}

// NewAuthorizationError creates an error for a command from a non-owner chat
func NewAuthorizationError(userID int64) *AppError {
	return New(ErrCodeAuthorization, "command from unauthorized user").
		WithContext("user_id", userID).
		WithUserMessage("You're not authorized to use this command.")
}

// RetryAfter extracts the rate-limit retry hint from an error chain, if any.
func RetryAfter(err error) (time.Duration, bool) {
	appErr, ok := err.(*AppError)
	if !ok || appErr.Context == nil {
		return 0, false
	}
	raw, ok := appErr.Context["retry_after"].(string)
	if !ok {
		return 0, false
	}
	d, parseErr := time.ParseDuration(raw)
	if parseErr != nil {
		return 0, false
	}
	return d, true
}
