package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tasky-chat/internal/models"
)

const tracerName = "tasky-chat/ws"

// Event names on the wire.
const (
	EventJoinOrg  = "join_org"
	EventMessage  = "message"
	EventReaction = "reaction"
	EventTyping   = "typing"
	EventError    = "error"
)

type chatService interface {
	CreateMessage(ctx context.Context, in models.NewMessage) (models.MessageView, error)
	UpsertReaction(ctx context.Context, messageID, userID, symbol string) (models.MessageView, error)
}

// Broadcaster fans events out to rooms.
type Broadcaster interface {
	Join(room string, c *Client)
	EmitToRoom(room, event string, payload any)
}

type auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinOrgPayload struct {
	OrganizationID string `json:"organizationId"`
}

type messagePayload struct {
	OrganizationID string                   `json:"organizationId" validate:"required"`
	Body           string                   `json:"body" validate:"required"`
	ReplyToID      *string                  `json:"replyToId"`
	Attachments    []models.AttachmentInput `json:"attachments" validate:"omitempty,dive"`
}

type reactionPayload struct {
	MessageID      string `json:"messageId" validate:"required"`
	ReactionSymbol string `json:"reactionSymbol" validate:"required,max=64"`
}

type typingPayload struct {
	OrganizationID string `json:"organizationId" validate:"required"`
}

var errEmptyPayload = errors.New("missing data")

// Gateway interprets client events on behalf of one authenticated connection.
type Gateway struct {
	svc      chatService
	rooms    Broadcaster
	audit    auditor
	validate *validator.Validate
	log      *slog.Logger
}

// NewGateway builds a Gateway. audit may be nil.
func NewGateway(svc chatService, rooms Broadcaster, audit auditor, log *slog.Logger) *Gateway {
	return &Gateway{
		svc:      svc,
		rooms:    rooms,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// Dispatch handles one raw frame from c. Failures are reported to c alone.
func (g *Gateway) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		g.fail(c, "invalid frame")
		return
	}

	name := frame.Event
	switch name {
	case EventJoinOrg, EventMessage, EventReaction, EventTyping:
	default:
		name = "unknown"
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ws."+name)
	span.SetAttributes(attribute.String("ws.conn_id", c.info.ConnID), attribute.String("enduser.id", c.principal.UserID))
	defer span.End()

	var err error
	switch frame.Event {
	case EventJoinOrg:
		err = g.joinOrg(c, frame.Data)
	case EventMessage:
		err = g.message(ctx, c, frame.Data)
	case EventReaction:
		err = g.reaction(ctx, c, frame.Data)
	case EventTyping:
		err = g.typing(c, frame.Data)
	default:
		err = fmt.Errorf("unknown event %q", frame.Event)
		g.fail(c, "unknown event")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.log.Debug("websocket event failed", "event", frame.Event, "conn_id", c.info.ConnID, "err", err)
	}
}

func (g *Gateway) joinOrg(c *Client, data json.RawMessage) error {
	var p joinOrgPayload
	// Malformed joins are dropped without telling the client.
	if err := g.decode(data, &p); errors.Is(err, errEmptyPayload) {
		return nil
	} else if err != nil {
		return err
	}
	if p.OrganizationID == "" {
		return nil
	}
	g.rooms.Join(OrgRoom(p.OrganizationID), c)
	return nil
}

func (g *Gateway) message(ctx context.Context, c *Client, data json.RawMessage) error {
	var p messagePayload
	if err := g.decode(data, &p); err != nil {
		g.fail(c, "invalid message payload")
		return err
	}

	msg, err := g.svc.CreateMessage(ctx, models.NewMessage{
		OrganizationID: p.OrganizationID,
		AuthorUserID:   c.principal.UserID,
		Body:           p.Body,
		ReplyToID:      p.ReplyToID,
		Attachments:    p.Attachments,
	})
	if err != nil {
		g.fail(c, "failed to send message")
		return err
	}

	g.rooms.EmitToRoom(OrgRoom(msg.OrganizationID), EventMessage, msg)
	g.emitAudit(ctx, c, fmt.Sprintf("message %s posted to organization %s over websocket", msg.ID, msg.OrganizationID))
	return nil
}

func (g *Gateway) reaction(ctx context.Context, c *Client, data json.RawMessage) error {
	var p reactionPayload
	if err := g.decode(data, &p); err != nil {
		g.fail(c, "invalid reaction payload")
		return err
	}

	msg, err := g.svc.UpsertReaction(ctx, p.MessageID, c.principal.UserID, p.ReactionSymbol)
	if err != nil {
		g.fail(c, "failed to react to message")
		return err
	}

	g.rooms.EmitToRoom(OrgRoom(msg.OrganizationID), EventReaction, msg)
	g.emitAudit(ctx, c, fmt.Sprintf("reaction on message %s set over websocket", msg.ID))
	return nil
}

func (g *Gateway) typing(c *Client, data json.RawMessage) error {
	var p typingPayload
	if err := g.decode(data, &p); err != nil {
		g.fail(c, "invalid typing payload")
		return err
	}
	g.rooms.EmitToRoom(OrgRoom(p.OrganizationID), EventTyping, models.TypingEvent{
		UserID:         c.principal.UserID,
		OrganizationID: p.OrganizationID,
	})
	return nil
}

func (g *Gateway) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return errEmptyPayload
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return g.validate.Struct(dst)
}

func (g *Gateway) fail(c *Client, message string) {
	c.Send(EventError, models.RelayError{Message: message})
}

func (g *Gateway) emitAudit(ctx context.Context, c *Client, text string) {
	if g.audit == nil {
		return
	}
	userID := c.principal.UserID
	g.audit.Emit(ctx, "INFO", text, c.info.RequestID, &userID)
}
