package realtime

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrSpeakerConnected is returned when a second speaker connection is
// attempted for the same session.
var ErrSpeakerConnected = errors.New("a speaker is already connected to this session")

// HubStats is a point-in-time view of hub activity.
type HubStats struct {
	Sessions        int   `json:"sessions"`
	Connections     int   `json:"connections"`
	DroppedMessages int64 `json:"dropped_messages"`
}

// Hub tracks the WebSocket connections of every live session and fans
// messages out to them. All methods are safe for concurrent use.
type Hub struct {
	mu       sync.Mutex
	sessions map[string][]*Connection
	dropped  atomic.Int64
	logger   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string][]*Connection),
		logger:   logger,
	}
}

func hubKey(joinCode string) string {
	return strings.ToUpper(joinCode)
}

// Register attaches a connection to its session. At most one speaker
// connection is allowed per session; a second one is rejected with
// ErrSpeakerConnected.
func (h *Hub) Register(c *Connection) error {
	key := hubKey(c.JoinCode)
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.Role == RoleSpeaker {
		for _, other := range h.sessions[key] {
			if other.Role == RoleSpeaker {
				return ErrSpeakerConnected
			}
		}
	}
	h.sessions[key] = append(h.sessions[key], c)
	return nil
}

// Unregister detaches a connection. It reports whether the connection was
// still registered, so disconnect handling runs exactly once per client.
func (h *Hub) Unregister(c *Connection) bool {
	key := hubKey(c.JoinCode)
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.sessions[key]
	for i, other := range conns {
		if other.ID == c.ID {
			h.sessions[key] = append(conns[:i], conns[i+1:]...)
			if len(h.sessions[key]) == 0 {
				delete(h.sessions, key)
			}
			return true
		}
	}
	return false
}

// AudienceCount returns the number of audience connections in a session.
func (h *Hub) AudienceCount(joinCode string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, c := range h.sessions[hubKey(joinCode)] {
		if c.Role == RoleAudience {
			n++
		}
	}
	return n
}

// SpeakerFor returns the session's speaker connection, or nil.
func (h *Hub) SpeakerFor(joinCode string) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.sessions[hubKey(joinCode)] {
		if c.Role == RoleSpeaker {
			return c
		}
	}
	return nil
}

// ListFor copies the session's connection list so sends happen outside
// the hub lock.
func (h *Hub) ListFor(joinCode string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.sessions[hubKey(joinCode)]
	out := make([]*Connection, len(conns))
	copy(out, conns)
	return out
}

// BroadcastToSession sends a message to every connection in a session.
func (h *Hub) BroadcastToSession(joinCode string, v interface{}) {
	msg := marshal(v)
	for _, c := range h.ListFor(joinCode) {
		h.deliver(c, msg)
	}
}

// BroadcastToAudience sends a message to every audience connection,
// optionally skipping one connection ID (typically the originator).
func (h *Hub) BroadcastToAudience(joinCode string, v interface{}, excludeID string) {
	msg := marshal(v)
	for _, c := range h.ListFor(joinCode) {
		if c.Role != RoleAudience || c.ID == excludeID {
			continue
		}
		h.deliver(c, msg)
	}
}

// SendToSpeaker delivers a message to the session's speaker, if connected.
func (h *Hub) SendToSpeaker(joinCode string, v interface{}) {
	if c := h.SpeakerFor(joinCode); c != nil {
		h.deliver(c, marshal(v))
	}
}

// Send delivers a message to a single connection.
func (h *Hub) Send(c *Connection, v interface{}) {
	h.deliver(c, marshal(v))
}

func (h *Hub) deliver(c *Connection, msg []byte) {
	if !c.trySend(msg) {
		h.dropped.Add(1)
		h.logger.Warn("dropped message to slow or closed connection",
			zap.String("join_code", c.JoinCode),
			zap.String("connection_id", c.ID),
			zap.String("role", c.Role))
	}
}

// CloseSession closes every connection of a session with the given close
// code and removes the session from the hub.
func (h *Hub) CloseSession(joinCode string, closeCode int, reason string) {
	key := hubKey(joinCode)
	h.mu.Lock()
	conns := h.sessions[key]
	delete(h.sessions, key)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(closeCode, reason)
	}
}

// Stats reports current hub occupancy and the delivery failure count.
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	sessions := len(h.sessions)
	connections := 0
	for _, conns := range h.sessions {
		connections += len(conns)
	}
	h.mu.Unlock()

	return HubStats{
		Sessions:        sessions,
		Connections:     connections,
		DroppedMessages: h.dropped.Load(),
	}
}
