package realtime

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testConn(joinCode, role string, buffer int) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		JoinCode: joinCode,
		Role:     role,
		send:     make(chan []byte, buffer),
	}
}

func recv(t *testing.T, c *Connection) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	default:
		t.Fatal("no message queued")
		return nil
	}
}

func TestRegisterSecondSpeakerRejected(t *testing.T) {
	hub := NewHub(zap.NewNop())
	first := testConn("ABC234", RoleSpeaker, 1)
	if err := hub.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	second := testConn("ABC234", RoleSpeaker, 2)
	if err := hub.Register(second); !errors.Is(err, ErrSpeakerConnected) {
		t.Fatalf("err = %v, want ErrSpeakerConnected", err)
	}
	// A speaker for a different session is fine.
	other := testConn("XYZ789", RoleSpeaker, 1)
	if err := hub.Register(other); err != nil {
		t.Fatalf("Register other session: %v", err)
	}
}

func TestSpeakerSlotFreedAfterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	first := testConn("ABC234", RoleSpeaker, 1)
	if err := hub.Register(first); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !hub.Unregister(first) {
		t.Fatal("Unregister returned false for a registered connection")
	}
	second := testConn("ABC234", RoleSpeaker, 2)
	if err := hub.Register(second); err != nil {
		t.Fatalf("Register after unregister: %v", err)
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testConn("ABC234", RoleAudience, 1)
	if err := hub.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !hub.Unregister(c) {
		t.Fatal("first Unregister returned false")
	}
	if hub.Unregister(c) {
		t.Fatal("second Unregister returned true")
	}
}

func TestAudienceCountExcludesSpeaker(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Register(testConn("ABC234", RoleSpeaker, 1))
	hub.Register(testConn("ABC234", RoleAudience, 1))
	hub.Register(testConn("ABC234", RoleAudience, 2))
	if n := hub.AudienceCount("ABC234"); n != 2 {
		t.Fatalf("AudienceCount = %d, want 2", n)
	}
	// Join codes are matched case-insensitively.
	if n := hub.AudienceCount("abc234"); n != 2 {
		t.Fatalf("AudienceCount lowercase = %d, want 2", n)
	}
}

func TestBroadcastRouting(t *testing.T) {
	hub := NewHub(zap.NewNop())
	speaker := testConn("ABC234", RoleSpeaker, 4)
	alice := testConn("ABC234", RoleAudience, 4)
	bob := testConn("ABC234", RoleAudience, 4)
	stranger := testConn("XYZ789", RoleAudience, 4)
	for _, c := range []*Connection{speaker, alice, bob, stranger} {
		if err := hub.Register(c); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	hub.BroadcastToSession("ABC234", NewPong())
	for _, c := range []*Connection{speaker, alice, bob} {
		if msg := recv(t, c); msg["type"] != TypePong {
			t.Fatalf("got %v, want pong", msg["type"])
		}
	}
	if len(stranger.send) != 0 {
		t.Fatal("broadcast leaked into another session")
	}

	hub.BroadcastToAudience("ABC234", NewPong(), alice.ID)
	if msg := recv(t, bob); msg["type"] != TypePong {
		t.Fatalf("got %v, want pong", msg["type"])
	}
	if len(alice.send) != 0 {
		t.Fatal("excluded connection received the broadcast")
	}
	if len(speaker.send) != 0 {
		t.Fatal("speaker received an audience broadcast")
	}

	hub.SendToSpeaker("ABC234", NewError("test", "only for the speaker"))
	if msg := recv(t, speaker); msg["type"] != TypeError {
		t.Fatalf("got %v, want error", msg["type"])
	}
	if len(alice.send) != 0 || len(bob.send) != 0 {
		t.Fatal("audience received a speaker-only message")
	}
}

func TestDroppedMessagesCounted(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testConn("ABC234", RoleAudience, 1)
	hub.Register(c)

	hub.BroadcastToSession("ABC234", NewPong())
	hub.BroadcastToSession("ABC234", NewPong())

	stats := hub.Stats()
	if stats.DroppedMessages != 1 {
		t.Fatalf("DroppedMessages = %d, want 1", stats.DroppedMessages)
	}
	if stats.Connections != 1 || stats.Sessions != 1 {
		t.Fatalf("stats = %+v, want 1 session and 1 connection", stats)
	}
}

func TestCloseSession(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testConn("ABC234", RoleAudience, 4)
	hub.Register(c)

	hub.BroadcastToSession("ABC234", NewPong())
	hub.CloseSession("ABC234", CloseSessionEnded, "session ended")

	if hub.Stats().Sessions != 0 {
		t.Fatal("session still tracked after CloseSession")
	}
	if hub.Unregister(c) {
		t.Fatal("connection still registered after CloseSession")
	}

	// Queued messages drain before the channel reports closed.
	if _, ok := <-c.send; !ok {
		t.Fatal("queued message lost on close")
	}
	if _, ok := <-c.send; ok {
		t.Fatal("send channel not closed")
	}
	if c.closeCode != CloseSessionEnded {
		t.Fatalf("closeCode = %d, want %d", c.closeCode, CloseSessionEnded)
	}
}
