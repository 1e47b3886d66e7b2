package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "tgrelay/internal/errors"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/sirupsen/logrus"
)

const helpText = `Available commands:
/setsource <chat_id> - Set the source chat ID
/setdestination <chat_id> - Set the destination chat ID
/config - Show current configuration
/help - Show this help message`

// CommandHandler processes owner commands that configure the relay route.
// Route mutations and /config are restricted to the configured owner; /start
// and /help answer anyone.
type CommandHandler struct {
	client  tgtypes.Client
	routes  *RouteStore
	ownerID int64
	logger  *logrus.Logger
}

func NewCommandHandler(client tgtypes.Client, routes *RouteStore, ownerID int64, logger *logrus.Logger) *CommandHandler {
	return &CommandHandler{
		client:  client,
		routes:  routes,
		ownerID: ownerID,
		logger:  logger,
	}
}

// Handle dispatches a single command message.
func (h *CommandHandler) Handle(ctx context.Context, msg *tgtypes.Message) {
	command, arg := splitCommand(msg.Text)

	switch command {
	case "/start":
		h.reply(ctx, msg, "Hello! I am a message relay bot. Use /help to see available commands.")
	case "/help":
		h.reply(ctx, msg, helpText)
	case "/setsource":
		if !h.authorize(ctx, msg) {
			return
		}
		h.handleSetSource(ctx, msg, arg)
	case "/setdestination":
		if !h.authorize(ctx, msg) {
			return
		}
		h.handleSetDestination(ctx, msg, arg)
	case "/config":
		if !h.authorize(ctx, msg) {
			return
		}
		h.handleShowConfig(ctx, msg)
	default:
		// Unknown commands are ignored
	}
}

func (h *CommandHandler) authorize(ctx context.Context, msg *tgtypes.Message) bool {
	if msg.From != nil && msg.From.ID == h.ownerID {
		return true
	}

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	err := apperrors.NewAuthorizationError(userID)
	h.logger.WithField("userId", userID).Warn("Rejected command from unauthorized user")
	h.reply(ctx, msg, apperrors.GetUserMessage(err))
	return false
}

func (h *CommandHandler) handleSetSource(ctx context.Context, msg *tgtypes.Message, arg string) {
	id, ok := h.parseChatID(ctx, msg, arg, "source")
	if !ok {
		return
	}

	routes := h.routes.Get()
	if routes.DestinationID != nil && *routes.DestinationID == id {
		h.reply(ctx, msg, "Source and destination chats cannot be the same.")
		return
	}

	if err := h.routes.SetSource(id); err != nil {
		h.logger.WithError(err).Error("Failed to set source chat")
		h.reply(ctx, msg, apperrors.GetUserMessage(err))
		return
	}

	h.reply(ctx, msg, fmt.Sprintf("Source ID set to: %d", id))
}

func (h *CommandHandler) handleSetDestination(ctx context.Context, msg *tgtypes.Message, arg string) {
	id, ok := h.parseChatID(ctx, msg, arg, "destination")
	if !ok {
		return
	}

	routes := h.routes.Get()
	if routes.SourceID != nil && *routes.SourceID == id {
		h.reply(ctx, msg, "Source and destination chats cannot be the same.")
		return
	}

	if err := h.routes.SetDestination(id); err != nil {
		h.logger.WithError(err).Error("Failed to set destination chat")
		h.reply(ctx, msg, apperrors.GetUserMessage(err))
		return
	}

	h.reply(ctx, msg, fmt.Sprintf("Destination ID set to: %d", id))
}

func (h *CommandHandler) handleShowConfig(ctx context.Context, msg *tgtypes.Message) {
	routes := h.routes.Get()
	h.reply(ctx, msg, fmt.Sprintf("Source ID: %s\nDestination ID: %s",
		formatChatID(routes.SourceID), formatChatID(routes.DestinationID)))
}

func (h *CommandHandler) parseChatID(ctx context.Context, msg *tgtypes.Message, arg, which string) (int64, bool) {
	if arg == "" {
		h.reply(ctx, msg, fmt.Sprintf("Please provide the %s chat ID.", which))
		return 0, false
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == 0 {
		h.reply(ctx, msg, "Please provide a valid numeric ID.")
		return 0, false
	}

	return id, true
}

func (h *CommandHandler) reply(ctx context.Context, msg *tgtypes.Message, text string) {
	if _, err := h.client.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		h.logger.WithError(err).Warn("Failed to send command reply")
	}
}

func formatChatID(id *int64) string {
	if id == nil {
		return "not set"
	}
	return strconv.FormatInt(*id, 10)
}

// splitCommand separates "/cmd@botname arg" into the bare command and its
// first argument.
func splitCommand(text string) (string, string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ""
	}

	command := fields[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return command, arg
}
