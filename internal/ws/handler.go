package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"tasky-chat/internal/auth"
	"tasky-chat/internal/observability"
)

// accessTokenProtocol lets browsers send the token as
// "Sec-WebSocket-Protocol: access_token, <token>".
const accessTokenProtocol = "access_token"

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Principal, error)
}

// Options tunes keepalive and buffering of connections.
type Options struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
	return o
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{accessTokenProtocol},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler authenticates and upgrades websocket connections.
type Handler struct {
	hub      *Hub
	gateway  *Gateway
	verifier tokenVerifier
	opts     Options
	log      *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, gateway *Gateway, verifier tokenVerifier, opts Options, log *slog.Logger) *Handler {
	return &Handler{hub: hub, gateway: gateway, verifier: verifier, opts: opts.withDefaults(), log: log}
}

// Handle rejects the handshake with 401 unless it carries a valid token.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer(tracerName).Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	principal, err := h.verifier.Verify(ctx, credentialFromRequest(c.Request))
	if err != nil {
		observability.IncWSEvent("ws_rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", principal.UserID, "err", err)
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      principal.UserID,
		Email:       principal.Email,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     observability.TraceIDFromContext(ctx),
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, principal, info, h.opts.SendBuffer)

	observability.IncWSActive()
	publishLifecycle(ctx, "ws_connect", info, "")
	h.log.Debug("websocket connected", "conn_id", info.ConnID, "user_id", info.UserID)

	// The request context ends when this handler returns.
	connCtx := context.WithoutCancel(ctx)
	go client.writePump(h.opts.PingInterval, h.opts.WriteWait)
	go h.readPump(connCtx, client)
}

// readPump handles the connection's events one at a time, in arrival order.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	var closeReason string
	defer func() {
		h.hub.Remove(c)
		c.Close()
		observability.DecWSActive()
		publishLifecycle(ctx, "ws_disconnect", c.info, closeReason)
		h.log.Debug("websocket disconnected", "conn_id", c.info.ConnID, "reason", closeReason)
	}()

	conn := c.conn
	conn.SetReadLimit(h.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !c.closed() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, "ws_error", c.info, closeReason)
			}
			return
		}
		h.gateway.Dispatch(ctx, c, data)
	}
}

// credentialFromRequest looks at the handshake protocol header, then the
// token query parameter, then the Authorization header.
func credentialFromRequest(r *http.Request) string {
	protocols := websocket.Subprotocols(r)
	for i, p := range protocols {
		if p == accessTokenProtocol && i+1 < len(protocols) {
			return protocols[i+1]
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
