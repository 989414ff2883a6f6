package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tasky-chat/internal/auth"
	"tasky-chat/internal/models"
)

// Client is one authenticated websocket connection. It is only created after
// the handshake credential has been verified.
type Client struct {
	conn      *websocket.Conn
	principal auth.Principal
	info      ConnInfo
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, principal auth.Principal, info ConnInfo, buffer int) *Client {
	return &Client{
		conn:      conn,
		principal: principal,
		info:      info,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// Principal is the verified identity of the connection.
func (c *Client) Principal() auth.Principal { return c.principal }

// Info describes the connection.
func (c *Client) Info() ConnInfo { return c.info }

// Send queues an event for this connection only.
func (c *Client) Send(event string, payload any) bool {
	frame, err := json.Marshal(models.ChatEvent{Event: event, Data: payload})
	if err != nil {
		return false
	}
	return c.enqueue(frame)
}

// enqueue never blocks; a full buffer closes the client.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.Close()
		return false
	}
}

// Close stops the write pump, which then closes the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) writePump(pingInterval, writeWait time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
