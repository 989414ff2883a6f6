package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tasky-chat/internal/models"
)

// MessageRepositoryMock stands in for repositories.MessageRepository.
type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]models.MessageView, error) {
	args := m.Called(ctx, organizationID, limit)
	var msgs []models.MessageView
	if val := args.Get(0); val != nil {
		msgs = val.([]models.MessageView)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	args := m.Called(ctx, messageID)
	return view(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error) {
	args := m.Called(ctx, in)
	return view(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error) {
	args := m.Called(ctx, messageID, userID, symbol)
	return view(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, actorID, messageID, body string) (models.MessageView, error) {
	args := m.Called(ctx, actorID, messageID, body)
	return view(args.Get(0)), args.Error(1)
}

func (m *MessageRepositoryMock) SoftDeleteMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	args := m.Called(ctx, messageID)
	return view(args.Get(0)), args.Error(1)
}

// ChatServiceMock stands in for services.ChatService on the REST and websocket paths.
type ChatServiceMock struct {
	MessageRepositoryMock
}

func view(val any) models.MessageView {
	if val == nil {
		return models.MessageView{}
	}
	return val.(models.MessageView)
}
