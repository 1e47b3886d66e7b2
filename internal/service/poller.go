package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tgrelay/internal/models"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// UpdatePoller drives the relay: it long-polls the Bot API for updates and
// feeds them to the dispatcher, tracking the update offset so nothing is
// processed twice.
type UpdatePoller struct {
	client      tgtypes.Client
	dispatcher  *Dispatcher
	retryConfig models.RetryConfig
	logger      *logrus.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	mu          sync.RWMutex
	offset      int64
}

func NewUpdatePoller(client tgtypes.Client, dispatcher *Dispatcher, retryConfig models.RetryConfig, logger *logrus.Logger) *UpdatePoller {
	return &UpdatePoller{
		client:      client,
		dispatcher:  dispatcher,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// Start begins the background polling process
func (p *UpdatePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("update poller is already running")
	}

	// Verify the token before entering the poll loop
	me, err := p.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach Bot API before starting poller: %w", err)
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.WithField("bot", me.Username).Info("Update poller started")
	return nil
}

// Stop gracefully stops the polling process
func (p *UpdatePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.logger.Info("Stopping update poller...")
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("Update poller stopped")
}

// IsRunning returns whether the poller is currently active
func (p *UpdatePoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// pollLoop issues back-to-back long polls; GetUpdates blocks server-side
// until updates arrive or its timeout elapses, so there is no ticker.
func (p *UpdatePoller) pollLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		p.pollWithRetry()
	}
}

// pollWithRetry executes a single poll with exponential backoff on failure.
// After exhausting attempts the loop continues with the next poll; a broken
// network should not kill the relay.
func (p *UpdatePoller) pollWithRetry() {
	backoff := time.Duration(p.retryConfig.InitialBackoffMs) * time.Millisecond
	maxBackoff := time.Duration(p.retryConfig.MaxBackoffMs) * time.Millisecond

	for attempt := 0; attempt < p.retryConfig.MaxAttempts; attempt++ {
		updates, err := p.client.GetUpdates(p.ctx, p.offset)
		if err == nil {
			p.handleUpdates(updates)
			return
		}

		if p.ctx.Err() != nil {
			return
		}

		if IsVerboseLogging(p.ctx) {
			p.logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"error":   err,
				"backoff": backoff,
			}).Warn("Polling failed, retrying with backoff")
		} else {
			p.logger.Warn("Polling failed, retrying")
		}

		// Don't sleep on the last attempt
		if attempt < p.retryConfig.MaxAttempts-1 {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}

	p.logger.Error("Polling failed after all retry attempts")
}

func (p *UpdatePoller) handleUpdates(updates []tgtypes.Update) {
	for _, update := range updates {
		if update.UpdateID >= p.offset {
			p.offset = update.UpdateID + 1
		}
		p.dispatcher.HandleUpdate(p.ctx, update)
	}
}
