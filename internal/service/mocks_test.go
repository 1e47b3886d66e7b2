package service

import (
	"context"

	"tgrelay/internal/models"
	tgtypes "tgrelay/pkg/telegram/types"

	"github.com/stretchr/testify/mock"
)

type mockTelegramClient struct {
	mock.Mock
}

func (m *mockTelegramClient) GetMe(ctx context.Context) (*tgtypes.User, error) {
	args := m.Called(ctx)
	if user := args.Get(0); user != nil {
		return user.(*tgtypes.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTelegramClient) GetUpdates(ctx context.Context, offset int64) ([]tgtypes.Update, error) {
	args := m.Called(ctx, offset)
	if updates := args.Get(0); updates != nil {
		return updates.([]tgtypes.Update), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTelegramClient) SendMessage(ctx context.Context, chatID int64, text string) (*tgtypes.Message, error) {
	args := m.Called(ctx, chatID, text)
	if msg := args.Get(0); msg != nil {
		return msg.(*tgtypes.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTelegramClient) CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID int) (*tgtypes.MessageID, error) {
	args := m.Called(ctx, chatID, fromChatID, messageID)
	if id := args.Get(0); id != nil {
		return id.(*tgtypes.MessageID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTelegramClient) SendMediaGroup(ctx context.Context, chatID int64, media []tgtypes.InputMedia) ([]tgtypes.Message, error) {
	args := m.Called(ctx, chatID, media)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]tgtypes.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockForwardLog struct {
	mock.Mock
}

func (m *mockForwardLog) SaveForwardRecord(ctx context.Context, record *models.ForwardRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type mockUnitForwarder struct {
	mock.Mock
}

func (m *mockUnitForwarder) Forward(ctx context.Context, messages []*models.IncomingMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

type mockRecordCleaner struct {
	mock.Mock
}

func (m *mockRecordCleaner) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	args := m.Called(ctx, retentionDays)
	return args.Error(0)
}
