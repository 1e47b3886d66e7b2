package service

import (
	"context"
	"testing"
	"time"

	apperrors "tgrelay/internal/errors"
	"tgrelay/internal/models"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testOwnerID  = int64(5550001)
	testSourceID = int64(-100111)
)

func newTestDispatcher(t *testing.T, forwarder UnitForwarder, client tgtypes.Client) *Dispatcher {
	t.Helper()
	routes := configuredRoutes(t)
	var dispatcher *Dispatcher
	buffer := NewGroupBuffer(context.Background(), 30*time.Millisecond, 10,
		func(ctx context.Context, messages []*models.IncomingMessage) {
			dispatcher.ForwardCompletedGroup(ctx, messages)
		}, quietLogger())
	commands := NewCommandHandler(client, routes, testOwnerID, quietLogger())
	dispatcher = NewDispatcher(buffer, forwarder, routes, commands, quietLogger())
	return dispatcher
}

func sourceTextUpdate(updateID int64, msgID int, text string) tgtypes.Update {
	return tgtypes.Update{
		UpdateID: updateID,
		Message: &tgtypes.Message{
			MessageID: msgID,
			Chat:      tgtypes.Chat{ID: testSourceID, Type: "channel"},
			Date:      time.Now().Unix(),
			Text:      text,
		},
	}
}

func sourcePhotoUpdate(updateID int64, msgID int, groupID, fileID string) tgtypes.Update {
	return tgtypes.Update{
		UpdateID: updateID,
		Message: &tgtypes.Message{
			MessageID:    msgID,
			Chat:         tgtypes.Chat{ID: testSourceID, Type: "channel"},
			Date:         time.Now().Unix(),
			MediaGroupID: groupID,
			Photo: []tgtypes.PhotoSize{
				{FileID: fileID + "-small", Width: 90, Height: 90},
				{FileID: fileID, Width: 1280, Height: 1280},
			},
		},
	}
}

func TestDispatcher_ForwardsUngroupedImmediately(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	forwarder.On("Forward", mock.Anything, mock.MatchedBy(func(messages []*models.IncomingMessage) bool {
		return len(messages) == 1 && messages[0].MessageID == 42 && !messages[0].IsGrouped()
	})).Return(nil).Once()

	dispatcher.HandleUpdate(context.Background(), sourceTextUpdate(1, 42, "hello"))

	forwarder.AssertExpectations(t)
}

func TestDispatcher_BuffersGroupedAndForwardsOnce(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	done := make(chan struct{})
	forwarder.On("Forward", mock.Anything, mock.MatchedBy(func(messages []*models.IncomingMessage) bool {
		return len(messages) == 2 &&
			messages[0].MessageID == 1 && messages[1].MessageID == 2 &&
			messages[0].FileID == "file-1" // largest photo size picked
	})).Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	ctx := context.Background()
	dispatcher.HandleUpdate(ctx, sourcePhotoUpdate(1, 1, "g1", "file-1"))
	dispatcher.HandleUpdate(ctx, sourcePhotoUpdate(2, 2, "g1", "file-2"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("buffered group was never flushed")
	}
	forwarder.AssertExpectations(t)
}

func TestDispatcher_IgnoresNonSourceChat(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	update := sourceTextUpdate(1, 42, "hello")
	update.Message.Chat.ID = -100999

	dispatcher.HandleUpdate(context.Background(), update)

	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything)
}

func TestDispatcher_IgnoresUpdatesWithoutContent(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	dispatcher.HandleUpdate(context.Background(), tgtypes.Update{UpdateID: 1})
	dispatcher.HandleUpdate(context.Background(), tgtypes.Update{
		UpdateID:      2,
		EditedMessage: &tgtypes.Message{MessageID: 9, Chat: tgtypes.Chat{ID: testSourceID}},
	})

	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything)
}

func TestDispatcher_ChannelPostIsHandled(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	forwarder.On("Forward", mock.Anything, mock.Anything).Return(nil).Once()

	dispatcher.HandleUpdate(context.Background(), tgtypes.Update{
		UpdateID: 1,
		ChannelPost: &tgtypes.Message{
			MessageID: 7,
			Chat:      tgtypes.Chat{ID: testSourceID, Type: "channel"},
			Text:      "post",
		},
	})

	forwarder.AssertExpectations(t)
}

func TestDispatcher_RoutesCommandsToHandler(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	client := &mockTelegramClient{}
	dispatcher := newTestDispatcher(t, forwarder, client)

	client.On("SendMessage", mock.Anything, int64(777), mock.MatchedBy(func(text string) bool {
		return text != ""
	})).Return(&tgtypes.Message{}, nil).Once()

	dispatcher.HandleUpdate(context.Background(), tgtypes.Update{
		UpdateID: 1,
		Message: &tgtypes.Message{
			MessageID: 1,
			From:      &tgtypes.User{ID: testOwnerID},
			Chat:      tgtypes.Chat{ID: 777, Type: "private"},
			Text:      "/help",
		},
	})

	client.AssertExpectations(t)
	forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything)
}

func TestDispatcher_ForwardErrorDoesNotPanicOrPropagate(t *testing.T) {
	forwarder := &mockUnitForwarder{}
	dispatcher := newTestDispatcher(t, forwarder, &mockTelegramClient{})

	exhausted := apperrors.NewExhaustedError(3, assert.AnError)
	forwarder.On("Forward", mock.Anything, mock.Anything).Return(exhausted).Once()
	forwarder.On("Forward", mock.Anything, mock.Anything).Return(nil).Once()

	ctx := context.Background()
	dispatcher.HandleUpdate(ctx, sourceTextUpdate(1, 1, "first"))
	// Processing continues after a dropped unit
	dispatcher.HandleUpdate(ctx, sourceTextUpdate(2, 2, "second"))

	forwarder.AssertExpectations(t)
}

func TestToIncomingMessage_MediaKinds(t *testing.T) {
	base := tgtypes.Message{
		MessageID: 1,
		Chat:      tgtypes.Chat{ID: testSourceID},
		Date:      1700000000,
		Caption:   "cap",
	}

	video := base
	video.Video = &tgtypes.Video{FileID: "vid-1"}
	incoming := toIncomingMessage(&video)
	assert.Equal(t, models.MediaKindVideo, incoming.MediaKind)
	assert.Equal(t, "vid-1", incoming.FileID)
	assert.Equal(t, "cap", incoming.Caption)
	assert.Equal(t, time.Unix(1700000000, 0), incoming.Timestamp)

	doc := base
	doc.Document = &tgtypes.Document{FileID: "doc-1"}
	assert.Equal(t, models.MediaKindDocument, toIncomingMessage(&doc).MediaKind)

	audio := base
	audio.Audio = &tgtypes.Audio{FileID: "aud-1"}
	assert.Equal(t, models.MediaKindAudio, toIncomingMessage(&audio).MediaKind)

	anim := base
	anim.Animation = &tgtypes.Animation{FileID: "anim-1"}
	assert.Equal(t, models.MediaKindAnimation, toIncomingMessage(&anim).MediaKind)

	text := base
	text.Text = "plain"
	plain := toIncomingMessage(&text)
	assert.Equal(t, models.MediaKindNone, plain.MediaKind)
	assert.False(t, plain.HasMedia())
}

func TestToIncomingMessage_PicksLargestPhoto(t *testing.T) {
	msg := &tgtypes.Message{
		MessageID: 1,
		Chat:      tgtypes.Chat{ID: testSourceID},
		Photo: []tgtypes.PhotoSize{
			{FileID: "thumb", Width: 90},
			{FileID: "medium", Width: 320},
			{FileID: "full", Width: 1280},
		},
	}

	incoming := toIncomingMessage(msg)
	require.Equal(t, models.MediaKindPhoto, incoming.MediaKind)
	assert.Equal(t, "full", incoming.FileID)
}
