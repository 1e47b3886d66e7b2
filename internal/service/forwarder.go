package service

import (
	"context"
	"fmt"
	"time"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/metrics"
	"tgrelay/internal/models"
	"tgrelay/internal/retry"
	"tgrelay/internal/tracing"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ForwardLog records terminal forward outcomes.
type ForwardLog interface {
	SaveForwardRecord(ctx context.Context, record *models.ForwardRecord) error
}

// Forwarder delivers a single message or a completed media group to the
// destination chat with bounded retry on transient failure. Exhausted units
// are dropped: there is no outbox, delivery is at-most-once-after-retries.
type Forwarder struct {
	client      tgtypes.Client
	routes      *RouteStore
	log         ForwardLog
	backoff     *retry.Backoff
	maxAttempts int
	logger      *logrus.Logger

	// sleep waits between attempts; replaced in tests so retries don't
	// consume real time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewForwarder(client tgtypes.Client, routes *RouteStore, log ForwardLog, retryConfig models.RetryConfig, logger *logrus.Logger) *Forwarder {
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(retryConfig.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(retryConfig.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  retryConfig.MaxAttempts,
		Jitter:       true,
	})

	return &Forwarder{
		client:      client,
		routes:      routes,
		log:         log,
		backoff:     backoff,
		maxAttempts: retryConfig.MaxAttempts,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Forward delivers one unit. The unit is a single message when the slice has
// one ungrouped element, otherwise an ordered media group.
func (f *Forwarder) Forward(ctx context.Context, messages []*models.IncomingMessage) error {
	if len(messages) == 0 {
		return nil
	}

	routes := f.routes.Get()
	if routes.SourceID == nil {
		return apperrors.NewNotConfiguredError("source chat")
	}
	if routes.DestinationID == nil {
		return apperrors.NewNotConfiguredError("destination chat")
	}
	destination := *routes.DestinationID

	first := messages[0]
	ctx, span := tracing.StartSpan(ctx, "forwarder.forward",
		attribute.Int64("source.chat_id", first.ChatID),
		attribute.Int("source.message_id", first.MessageID),
		attribute.String("media_group_id", first.MediaGroupID),
		attribute.Int("unit_size", len(messages)),
	)
	defer span.End()

	start := time.Now()
	attempts, err := f.deliver(ctx, destination, messages)
	metrics.RecordTimer("forward_duration", time.Since(start), nil, "End-to-end forward latency including retries")

	f.record(ctx, messages, attempts, err)

	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	return nil
}

// deliver runs the bounded retry loop. Transient errors are retried with
// exponential backoff (a rate-limit hint from the platform overrides the
// computed delay); permanent errors fail on the first attempt.
func (f *Forwarder) deliver(ctx context.Context, destination int64, messages []*models.IncomingMessage) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		err := f.send(ctx, destination, messages)
		if err == nil {
			if attempt > 1 {
				f.logger.WithField("attempt", attempt).Info("Forward succeeded after retry")
			}
			metrics.IncrementCounter("forward_total", map[string]string{"status": "sent"}, "Forward outcomes")
			return attempt, nil
		}

		lastErr = err

		if !apperrors.IsRetryable(err) {
			metrics.IncrementCounter("forward_total", map[string]string{"status": "failed"}, "Forward outcomes")
			f.logger.WithError(err).WithFields(logrus.Fields{
				"sourceMsgId": messages[0].MessageID,
				"attempt":     attempt,
			}).Error("Forward failed with permanent error")
			return attempt, err
		}

		if attempt == f.maxAttempts {
			break
		}

		delay := f.backoff.GetNextDelay(attempt)
		if retryAfter, ok := apperrors.RetryAfter(err); ok && retryAfter > delay {
			delay = retryAfter
		}

		f.logger.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"backoff": delay,
		}).Warn("Forward attempt failed, retrying")
		metrics.IncrementCounter("forward_retries_total", nil, "Forward attempts that were retried")

		if sleepErr := f.sleep(ctx, delay); sleepErr != nil {
			return attempt, sleepErr
		}
	}

	exhausted := apperrors.NewExhaustedError(f.maxAttempts, lastErr)
	metrics.IncrementCounter("forward_total", map[string]string{"status": "exhausted"}, "Forward outcomes")
	f.logger.WithError(exhausted).WithFields(logrus.Fields{
		"sourceMsgId": messages[0].MessageID,
		"attempts":    f.maxAttempts,
	}).Error("Forward retries exhausted, dropping unit")
	return f.maxAttempts, exhausted
}

// send performs one delivery attempt, choosing the platform call by unit
// shape.
func (f *Forwarder) send(ctx context.Context, destination int64, messages []*models.IncomingMessage) error {
	if len(messages) == 1 && !messages[0].HasMedia() {
		// copyMessage keeps text and non-album payloads intact without
		// the "forwarded from" header
		msg := messages[0]
		_, err := f.client.CopyMessage(ctx, destination, msg.ChatID, msg.MessageID)
		return err
	}

	_, err := f.client.SendMediaGroup(ctx, destination, buildInputMedia(messages))
	return err
}

// buildInputMedia converts fragments to outgoing album items, carrying the
// first non-empty caption on the first item only.
func buildInputMedia(messages []*models.IncomingMessage) []tgtypes.InputMedia {
	caption := ""
	for _, msg := range messages {
		if msg.Caption != "" {
			caption = msg.Caption
			break
		}
	}

	media := make([]tgtypes.InputMedia, 0, len(messages))
	for i, msg := range messages {
		item := tgtypes.InputMedia{
			Type:  string(msg.MediaKind),
			Media: msg.FileID,
		}
		if i == 0 {
			item.Caption = caption
		}
		media = append(media, item)
	}
	return media
}

func (f *Forwarder) record(ctx context.Context, messages []*models.IncomingMessage, attempts int, forwardErr error) {
	if f.log == nil {
		return
	}

	first := messages[0]
	record := &models.ForwardRecord{
		SourceChatID: first.ChatID,
		SourceMsgID:  first.MessageID,
		MediaGroupID: first.MediaGroupID,
		UnitSize:     len(messages),
		Attempts:     attempts,
		Status:       models.ForwardStatusSent,
		ForwardedAt:  time.Now(),
	}

	for _, msg := range messages {
		if msg.Caption != "" {
			record.Caption = msg.Caption
			break
		}
	}

	if forwardErr != nil {
		record.Error = forwardErr.Error()
		if apperrors.GetCode(forwardErr) == apperrors.ErrCodeForwardExhausted {
			record.Status = models.ForwardStatusExhausted
		} else {
			record.Status = models.ForwardStatusFailed
		}
	}

	if err := f.log.SaveForwardRecord(ctx, record); err != nil {
		f.logger.WithError(err).Warn("Failed to save forward record")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("forward cancelled during backoff: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}
