package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection roles within a session.
const (
	RoleSpeaker  = "speaker"
	RoleAudience = "audience"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBuffer = 32
)

// Connection is one WebSocket client attached to a session.
type Connection struct {
	ID            string
	JoinCode      string
	Role          string
	ParticipantID *uuid.UUID
	DisplayName   string
	ConnectedAt   time.Time

	conn *websocket.Conn
	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
	closeOnce   sync.Once
}

func newConnection(conn *websocket.Conn, joinCode, role string) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		JoinCode:    joinCode,
		Role:        role,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
	}
}

// trySend queues a message without blocking. It reports false when the
// connection is closed or its buffer is full; a slow client drops messages
// instead of stalling the broadcaster.
func (c *Connection) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close shuts down the outbound side with the given close code. Safe to
// call more than once; only the first call wins.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.closeCode = code
		c.closeReason = reason
		close(c.send)
		c.mu.Unlock()
	})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings. It exits when Close is called or a write
// fails, and tears down the underlying socket on the way out.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				code, reason := c.closeCode, c.closeReason
				if code == 0 {
					code = websocket.CloseNormalClosure
				}
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// prepareRead configures read limits and the pong-based liveness deadline.
func (c *Connection) prepareRead() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
}
