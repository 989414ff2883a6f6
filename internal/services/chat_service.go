package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tasky-chat/internal/models"
	"tasky-chat/internal/observability"
	"tasky-chat/internal/repositories"
)

// ChatService is the single entry point for chat operations from REST and
// websocket callers alike.
type ChatService struct {
	repo repositories.MessageRepository
	log  *slog.Logger
}

// NewChatService builds a ChatService.
func NewChatService(repo repositories.MessageRepository, log *slog.Logger) *ChatService {
	return &ChatService{repo: repo, log: log}
}

// ListByOrganization returns the newest limit messages, oldest first.
func (s *ChatService) ListByOrganization(ctx context.Context, organizationID string, limit int) ([]models.MessageView, error) {
	if strings.TrimSpace(organizationID) == "" {
		return nil, s.done("list", invalid("organization id is required"))
	}
	if limit <= 0 {
		return nil, s.done("list", invalid("limit must be positive"))
	}
	msgs, err := s.repo.ListByOrganization(ctx, organizationID, limit)
	return msgs, s.done("list", err)
}

// CreateMessage stores a message authored by in.AuthorUserID.
func (s *ChatService) CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error) {
	switch {
	case strings.TrimSpace(in.OrganizationID) == "":
		return models.MessageView{}, s.done("create", invalid("organization id is required"))
	case strings.TrimSpace(in.AuthorUserID) == "":
		return models.MessageView{}, s.done("create", invalid("author is required"))
	case strings.TrimSpace(in.Body) == "":
		return models.MessageView{}, s.done("create", invalid("body is required"))
	}
	for i, att := range in.Attachments {
		if att.FileURL == "" || att.FileName == "" {
			return models.MessageView{}, s.done("create", invalid(fmt.Sprintf("attachment %d needs fileUrl and fileName", i)))
		}
		if att.FileSize != nil && *att.FileSize < 0 {
			return models.MessageView{}, s.done("create", invalid(fmt.Sprintf("attachment %d has a negative fileSize", i)))
		}
	}

	msg, err := s.repo.CreateMessage(ctx, in)
	return msg, s.done("create", err)
}

// UpsertReaction sets userID's reaction on a message.
func (s *ChatService) UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error) {
	if strings.TrimSpace(symbol) == "" {
		return models.MessageView{}, s.done("react", invalid("reaction symbol is required"))
	}
	msg, err := s.repo.UpsertReaction(ctx, messageID, userID, symbol)
	return msg, s.done("react", err)
}

// EditMessage replaces the body of a message; only its author may do so.
func (s *ChatService) EditMessage(ctx context.Context, actorID, messageID, body string) (models.MessageView, error) {
	if strings.TrimSpace(body) == "" {
		return models.MessageView{}, s.done("edit", invalid("body is required"))
	}
	msg, err := s.repo.EditMessage(ctx, actorID, messageID, body)
	return msg, s.done("edit", err)
}

// SoftDeleteMessage flags a message as deleted. Any member may delete any message.
func (s *ChatService) SoftDeleteMessage(ctx context.Context, messageID string) (models.MessageView, error) {
	msg, err := s.repo.SoftDeleteMessage(ctx, messageID)
	return msg, s.done("delete", err)
}

func (s *ChatService) done(operation string, err error) error {
	result := ResultOf(err)
	observability.IncChatOperation(operation, result)
	switch result {
	case "ok":
	case "error":
		s.log.Error("chat operation failed", "operation", operation, "err", err)
	default:
		s.log.Debug("chat operation rejected", "operation", operation, "result", result, "err", err)
	}
	return err
}

// ResultOf classifies an operation error for metrics and logs.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repositories.ErrNotFound):
		return "not_found"
	case errors.Is(err, repositories.ErrForbidden):
		return "forbidden"
	case errors.Is(err, repositories.ErrValidationFailed):
		return "invalid"
	default:
		return "error"
	}
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", repositories.ErrValidationFailed, reason)
}
