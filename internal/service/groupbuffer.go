package service

import (
	"context"
	"sync"
	"time"

	"tgrelay/internal/metrics"
	"tgrelay/internal/models"

	"github.com/sirupsen/logrus"
)

// FlushFunc receives a completed media group as one ordered unit.
type FlushFunc func(ctx context.Context, messages []*models.IncomingMessage)

// GroupBuffer accumulates album fragments that share a media group ID. The
// Bot API delivers album items as separate updates with no end-of-group
// marker, so a per-group inactivity timer is the only completion signal:
// every append cancels and reschedules the group's timer, and expiry hands
// the ordered fragments to the flush callback.
//
// Accumulators for distinct group IDs are independent; one group's timer
// never delays another's. A group ID seen again after its flush starts a
// fresh, unrelated accumulator.
type GroupBuffer struct {
	mu      sync.Mutex
	groups  map[string]*accumulator
	timeout time.Duration
	maxSize int
	flush   FlushFunc
	logger  *logrus.Logger

	// baseCtx is the context handed to timer-fired flushes, which run
	// outside any ingest call.
	baseCtx context.Context
}

type accumulator struct {
	groupID   string
	messages  []*models.IncomingMessage
	firstSeen time.Time
	timer     *time.Timer
}

func NewGroupBuffer(ctx context.Context, timeout time.Duration, maxSize int, flush FlushFunc, logger *logrus.Logger) *GroupBuffer {
	return &GroupBuffer{
		groups:  make(map[string]*accumulator),
		timeout: timeout,
		maxSize: maxSize,
		flush:   flush,
		logger:  logger,
		baseCtx: ctx,
	}
}

// Ingest buffers a grouped message and returns true, or returns false when
// the message carries no media group ID and the caller should forward it
// directly.
func (b *GroupBuffer) Ingest(ctx context.Context, msg *models.IncomingMessage) bool {
	if !msg.IsGrouped() {
		return false
	}

	b.mu.Lock()

	acc, ok := b.groups[msg.MediaGroupID]
	if !ok {
		acc = &accumulator{
			groupID:   msg.MediaGroupID,
			firstSeen: time.Now(),
		}
		b.groups[msg.MediaGroupID] = acc
	} else {
		acc.timer.Stop()
	}

	acc.messages = append(acc.messages, msg)
	size := len(acc.messages)

	if size >= b.maxSize {
		// The platform caps album size, so no further fragments can
		// belong to this group
		messages := b.removeLocked(msg.MediaGroupID)
		b.mu.Unlock()

		b.logger.WithFields(logrus.Fields{
			"mediaGroupId": msg.MediaGroupID,
			"fragments":    len(messages),
		}).Info("Media group reached max size, flushing immediately")

		b.dispatch(ctx, messages)
		return true
	}

	groupID := msg.MediaGroupID
	acc.timer = time.AfterFunc(b.timeout, func() {
		b.flushExpired(groupID)
	})
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"mediaGroupId": groupID,
		"fragments":    size,
	}).Debug("Buffered media group fragment, timer reset")

	return true
}

// flushExpired runs on timer expiry: the inactivity window elapsed with no
// new fragment, so the group is complete.
func (b *GroupBuffer) flushExpired(groupID string) {
	b.mu.Lock()
	messages := b.removeLocked(groupID)
	b.mu.Unlock()

	if len(messages) == 0 {
		return
	}

	b.logger.WithFields(logrus.Fields{
		"mediaGroupId": groupID,
		"fragments":    len(messages),
	}).Info("Media group complete, flushing")

	b.dispatch(b.baseCtx, messages)
}

// removeLocked retires the accumulator and returns its fragments in arrival
// order, deduplicated by file ID. Callers must hold the mutex.
func (b *GroupBuffer) removeLocked(groupID string) []*models.IncomingMessage {
	acc, ok := b.groups[groupID]
	if !ok {
		return nil
	}
	delete(b.groups, groupID)

	seen := make(map[string]bool, len(acc.messages))
	unique := acc.messages[:0]
	for _, msg := range acc.messages {
		if msg.FileID != "" && seen[msg.FileID] {
			continue
		}
		if msg.FileID != "" {
			seen[msg.FileID] = true
		}
		unique = append(unique, msg)
	}
	return unique
}

func (b *GroupBuffer) dispatch(ctx context.Context, messages []*models.IncomingMessage) {
	metrics.IncrementCounter("media_groups_flushed_total", nil, "Media groups handed to the forwarder")
	b.flush(ctx, messages)
}

// Len returns the number of live accumulators.
func (b *GroupBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups)
}

// Drain stops all pending timers and discards buffered fragments. Buffering
// is memory-only; a shutdown mid-group loses that group.
func (b *GroupBuffer) Drain() {
	b.mu.Lock()
	defer b.mu.Unlock()

	discarded := 0
	for id, acc := range b.groups {
		acc.timer.Stop()
		discarded += len(acc.messages)
		delete(b.groups, id)
	}

	if discarded > 0 {
		b.logger.WithField("fragments", discarded).Warn("Discarded buffered media group fragments on shutdown")
	}
}
