package service

import (
	"context"
	"time"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/metrics"
	"tgrelay/internal/models"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

// UnitForwarder delivers one unit (single message or completed group).
type UnitForwarder interface {
	Forward(ctx context.Context, messages []*models.IncomingMessage) error
}

// Dispatcher routes incoming updates: owner commands go to the command
// handler, source-chat messages are normalized and fed to the media group
// buffer or forwarded directly. No unit's failure stops processing of
// subsequent updates.
type Dispatcher struct {
	buffer    *GroupBuffer
	forwarder UnitForwarder
	routes    *RouteStore
	commands  *CommandHandler
	logger    *logrus.Logger
}

func NewDispatcher(buffer *GroupBuffer, forwarder UnitForwarder, routes *RouteStore, commands *CommandHandler, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		buffer:    buffer,
		forwarder: forwarder,
		routes:    routes,
		commands:  commands,
		logger:    logger,
	}
}

// HandleUpdate processes one incoming update.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgtypes.Update) {
	msg := update.Content()
	if msg == nil {
		return
	}

	if msg.IsCommand() {
		d.commands.Handle(ctx, msg)
		return
	}

	routes := d.routes.Get()
	if routes.SourceID == nil || msg.Chat.ID != *routes.SourceID {
		if IsVerboseLogging(ctx) {
			d.logger.WithField("chatId", msg.Chat.ID).Debug("Ignoring message from non-source chat")
		}
		return
	}

	incoming := toIncomingMessage(msg)
	metrics.IncrementCounter("updates_ingested_total", nil, "Source-chat messages accepted for relaying")

	if d.buffer.Ingest(ctx, incoming) {
		return
	}

	// Not part of a media group: forward immediately, no buffering delay
	d.forwardUnit(ctx, []*models.IncomingMessage{incoming})
}

// ForwardCompletedGroup is the buffer's flush target.
func (d *Dispatcher) ForwardCompletedGroup(ctx context.Context, messages []*models.IncomingMessage) {
	d.forwardUnit(ctx, messages)
}

func (d *Dispatcher) forwardUnit(ctx context.Context, messages []*models.IncomingMessage) {
	err := d.forwarder.Forward(ctx, messages)
	if err == nil {
		return
	}

	if apperrors.GetCode(err) == apperrors.ErrCodeNotConfigured {
		// Expected steady state before setup, not an operator error
		d.logger.WithError(err).Debug("Dropping message, relay not fully configured")
		return
	}

	// Terminal forward failures are logged and swallowed; the dispatcher
	// keeps processing subsequent updates
	d.logger.WithError(err).WithFields(logrus.Fields{
		"sourceMsgId": messages[0].MessageID,
		"unitSize":    len(messages),
	}).Error("Forward failed")
}

// toIncomingMessage normalizes a Bot API message into the relay's internal
// shape, picking the media payload that can be re-sent as an album item.
func toIncomingMessage(msg *tgtypes.Message) *models.IncomingMessage {
	incoming := &models.IncomingMessage{
		ChatID:       msg.Chat.ID,
		MessageID:    msg.MessageID,
		MediaGroupID: msg.MediaGroupID,
		Caption:      msg.Caption,
		Timestamp:    time.Unix(msg.Date, 0),
	}

	switch {
	case len(msg.Photo) > 0:
		// The photo array lists sizes smallest first; forward the largest
		incoming.MediaKind = models.MediaKindPhoto
		incoming.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		incoming.MediaKind = models.MediaKindVideo
		incoming.FileID = msg.Video.FileID
	case msg.Document != nil:
		incoming.MediaKind = models.MediaKindDocument
		incoming.FileID = msg.Document.FileID
	case msg.Audio != nil:
		incoming.MediaKind = models.MediaKindAudio
		incoming.FileID = msg.Audio.FileID
	case msg.Animation != nil:
		incoming.MediaKind = models.MediaKindAnimation
		incoming.FileID = msg.Animation.FileID
	}

	return incoming
}
