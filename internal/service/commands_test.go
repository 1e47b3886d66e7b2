package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCommandHandler(t *testing.T, client tgtypes.Client) (*CommandHandler, *RouteStore) {
	t.Helper()
	routes, err := NewRouteStore(filepath.Join(t.TempDir(), "routes.json"), quietLogger())
	require.NoError(t, err)
	return NewCommandHandler(client, routes, testOwnerID, quietLogger()), routes
}

func ownerCommand(text string) *tgtypes.Message {
	return &tgtypes.Message{
		MessageID: 1,
		From:      &tgtypes.User{ID: testOwnerID},
		Chat:      tgtypes.Chat{ID: testOwnerID, Type: "private"},
		Text:      text,
	}
}

func strangerCommand(text string) *tgtypes.Message {
	return &tgtypes.Message{
		MessageID: 1,
		From:      &tgtypes.User{ID: 424242},
		Chat:      tgtypes.Chat{ID: 424242, Type: "private"},
		Text:      text,
	}
}

func expectReply(client *mockTelegramClient, chatID int64, contains string) {
	client.On("SendMessage", mock.Anything, chatID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, contains)
	})).Return(&tgtypes.Message{}, nil).Once()
}

func TestCommandHandler_SetSource(t *testing.T) {
	client := &mockTelegramClient{}
	handler, routes := newTestCommandHandler(t, client)

	expectReply(client, testOwnerID, "Source ID set to: -100111")

	handler.Handle(context.Background(), ownerCommand("/setsource -100111"))

	client.AssertExpectations(t)
	require.NotNil(t, routes.Get().SourceID)
	assert.Equal(t, int64(-100111), *routes.Get().SourceID)
}

func TestCommandHandler_SetDestination(t *testing.T) {
	client := &mockTelegramClient{}
	handler, routes := newTestCommandHandler(t, client)

	expectReply(client, testOwnerID, "Destination ID set to: -100222")

	handler.Handle(context.Background(), ownerCommand("/setdestination -100222"))

	client.AssertExpectations(t)
	require.NotNil(t, routes.Get().DestinationID)
	assert.Equal(t, int64(-100222), *routes.Get().DestinationID)
}

func TestCommandHandler_RejectsSameSourceAndDestination(t *testing.T) {
	client := &mockTelegramClient{}
	handler, routes := newTestCommandHandler(t, client)
	require.NoError(t, routes.SetSource(-100111))

	expectReply(client, testOwnerID, "cannot be the same")

	handler.Handle(context.Background(), ownerCommand("/setdestination -100111"))

	client.AssertExpectations(t)
	assert.Nil(t, routes.Get().DestinationID)
}

func TestCommandHandler_MissingArgument(t *testing.T) {
	client := &mockTelegramClient{}
	handler, routes := newTestCommandHandler(t, client)

	expectReply(client, testOwnerID, "provide the source chat ID")

	handler.Handle(context.Background(), ownerCommand("/setsource"))

	client.AssertExpectations(t)
	assert.Nil(t, routes.Get().SourceID)
}

func TestCommandHandler_InvalidArgument(t *testing.T) {
	tests := []string{"/setsource abc", "/setsource 0", "/setdestination 12.5"}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			client := &mockTelegramClient{}
			handler, routes := newTestCommandHandler(t, client)

			expectReply(client, testOwnerID, "valid numeric ID")

			handler.Handle(context.Background(), ownerCommand(text))

			client.AssertExpectations(t)
			assert.Nil(t, routes.Get().SourceID)
			assert.Nil(t, routes.Get().DestinationID)
		})
	}
}

func TestCommandHandler_ShowConfig(t *testing.T) {
	client := &mockTelegramClient{}
	handler, routes := newTestCommandHandler(t, client)
	require.NoError(t, routes.SetSource(-100111))

	client.On("SendMessage", mock.Anything, testOwnerID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Source ID: -100111") &&
			strings.Contains(text, fmt.Sprintf("Destination ID: %s", "not set"))
	})).Return(&tgtypes.Message{}, nil).Once()

	handler.Handle(context.Background(), ownerCommand("/config"))

	client.AssertExpectations(t)
}

func TestCommandHandler_UnauthorizedUserRejected(t *testing.T) {
	for _, text := range []string{"/setsource -100111", "/setdestination -100222", "/config"} {
		t.Run(text, func(t *testing.T) {
			client := &mockTelegramClient{}
			handler, routes := newTestCommandHandler(t, client)

			expectReply(client, 424242, "not authorized")

			handler.Handle(context.Background(), strangerCommand(text))

			client.AssertExpectations(t)
			assert.Nil(t, routes.Get().SourceID)
			assert.Nil(t, routes.Get().DestinationID)
		})
	}
}

func TestCommandHandler_OpenCommandsAnswerAnyone(t *testing.T) {
	client := &mockTelegramClient{}
	handler, _ := newTestCommandHandler(t, client)

	expectReply(client, 424242, "relay bot")
	handler.Handle(context.Background(), strangerCommand("/start"))

	expectReply(client, 424242, "/setsource")
	handler.Handle(context.Background(), strangerCommand("/help"))

	client.AssertExpectations(t)
}

func TestCommandHandler_UnknownCommandIgnored(t *testing.T) {
	client := &mockTelegramClient{}
	handler, _ := newTestCommandHandler(t, client)

	handler.Handle(context.Background(), ownerCommand("/frobnicate"))

	client.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		text    string
		command string
		arg     string
	}{
		{"/setsource -100111", "/setsource", "-100111"},
		{"/setsource@relaybot -100111", "/setsource", "-100111"},
		{"/help", "/help", ""},
		{"/config extra junk", "/config", "extra"},
		{"   ", "", ""},
	}

	for _, tt := range tests {
		command, arg := splitCommand(tt.text)
		assert.Equal(t, tt.command, command, tt.text)
		assert.Equal(t, tt.arg, arg, tt.text)
	}
}
