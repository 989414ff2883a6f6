package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasky-chat/internal/auth"
	"tasky-chat/internal/models"
	"tasky-chat/internal/repositories"
)

type chatService interface {
	ListByOrganization(ctx context.Context, organizationID string, limit int) ([]models.MessageView, error)
	CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error)
	UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error)
	EditMessage(ctx context.Context, actorID, messageID, body string) (models.MessageView, error)
	SoftDeleteMessage(ctx context.Context, messageID string) (models.MessageView, error)
}

type auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

// ChatHandler serves the organization chat REST endpoints. Mutations made
// here are not broadcast to websocket rooms.
type ChatHandler struct {
	svc          chatService
	audit        auditor
	defaultLimit int
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(svc chatService, audit auditor, defaultLimit int) *ChatHandler {
	return &ChatHandler{svc: svc, audit: audit, defaultLimit: defaultLimit}
}

// RegisterRoutes mounts the chat endpoints on an authenticated group.
func (h *ChatHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/chat/:organization_id", h.ListMessages)
	r.POST("/chat", h.CreateMessage)
	r.POST("/chat/react", h.React)
	r.PATCH("/chat/:id", h.EditMessage)
	r.DELETE("/chat/:id", h.DeleteMessage)
}

type createMessageRequest struct {
	OrganizationID string                   `json:"organizationId" binding:"required"`
	Body           string                   `json:"body" binding:"required"`
	ReplyToID      *string                  `json:"replyToId"`
	Attachments    []models.AttachmentInput `json:"attachments" binding:"omitempty,dive"`
}

type reactRequest struct {
	MessageID      string `json:"messageId" binding:"required"`
	ReactionSymbol string `json:"reactionSymbol" binding:"required,max=64"`
}

type editMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// ListMessages returns the newest messages of an organization, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	limit := h.defaultLimit
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	msgs, err := h.svc.ListByOrganization(c.Request.Context(), c.Param("organization_id"), limit)
	if err != nil {
		writeError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// CreateMessage stores a message authored by the caller.
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	msg, err := h.svc.CreateMessage(c.Request.Context(), models.NewMessage{
		OrganizationID: req.OrganizationID,
		AuthorUserID:   userID,
		Body:           req.Body,
		ReplyToID:      req.ReplyToID,
		Attachments:    req.Attachments,
	})
	if err != nil {
		writeError(c, err, "failed to create message")
		return
	}

	h.emitAudit(c, fmt.Sprintf("message %s posted to organization %s", msg.ID, msg.OrganizationID))
	c.JSON(http.StatusCreated, msg)
}

// React sets the caller's reaction on a message.
func (h *ChatHandler) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.svc.UpsertReaction(c.Request.Context(), req.MessageID, c.GetString("userID"), req.ReactionSymbol)
	if err != nil {
		writeError(c, err, "failed to react to message")
		return
	}

	h.emitAudit(c, fmt.Sprintf("reaction on message %s set", msg.ID))
	c.JSON(http.StatusOK, msg)
}

// EditMessage replaces the body of a message the caller wrote.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messageID := c.Param("id")
	msg, err := h.svc.EditMessage(c.Request.Context(), c.GetString("userID"), messageID, req.Body)
	if err != nil {
		writeError(c, err, "failed to edit message")
		return
	}

	h.emitAudit(c, fmt.Sprintf("message %s edited", msg.ID))
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message. Any authenticated caller may do so.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("id")
	msg, err := h.svc.SoftDeleteMessage(c.Request.Context(), messageID)
	if err != nil {
		writeError(c, err, "failed to delete message")
		return
	}

	h.emitAudit(c, fmt.Sprintf("message %s deleted", msg.ID))
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) emitAudit(c *gin.Context, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), "INFO", text, requestIDFromContext(c), userIDFromContext(c))
}

// writeError maps the chat error taxonomy to HTTP statuses.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
