package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oratify/backend/internal/auth"
	"github.com/oratify/backend/internal/models"
)

type fakeParticipantStore struct {
	created []*models.Participant
	left    chan uuid.UUID
}

func (f *fakeParticipantStore) Create(_ context.Context, p *models.Participant) error {
	p.ID = uuid.New()
	p.JoinedAt = time.Now()
	f.created = append(f.created, p)
	return nil
}

func (f *fakeParticipantStore) MarkLeft(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.left <- id
	return nil
}

type fakeVerifier struct {
	id  uuid.UUID
	typ string
	err error
}

func (f *fakeVerifier) Decode(string) (uuid.UUID, string, error) {
	return f.id, f.typ, f.err
}

type gatewayFixture struct {
	server       *httptest.Server
	detail       *models.SessionDetail
	slideID      uuid.UUID
	speakerID    uuid.UUID
	verifier     *fakeVerifier
	participants *fakeParticipantStore
	responses    *fakeResponseStore
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slideID := uuid.New()
	presentationID := uuid.New()
	speakerID := uuid.New()
	detail := &models.SessionDetail{
		Session: models.Session{
			ID:             uuid.New(),
			PresentationID: presentationID,
			JoinCode:       "ABC234",
			CurrentSlideID: &slideID,
			Status:         models.SessionActive,
		},
		PresentationTitle: "Quarterly Review",
		SpeakerID:         speakerID,
		Slides:            []models.Slide{{ID: slideID, PresentationID: presentationID}},
	}

	store := &fakeSessionStore{sessions: map[string]*models.SessionDetail{"ABC234": detail}}
	participantStore := &fakeParticipantStore{left: make(chan uuid.UUID, 8)}
	responseStore := &fakeResponseStore{}
	verifier := &fakeVerifier{id: speakerID, typ: auth.TokenTypeAccess}

	hub := NewHub(zap.NewNop())
	ingest := NewIngestor(store, responseStore, hub, nil, zap.NewNop())
	gateway := NewGateway(store, participantStore, ingest, hub, verifier, zap.NewNop())

	router := gin.New()
	router.GET("/ws/session/:code", gateway.Handle)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &gatewayFixture{
		server:       server,
		detail:       detail,
		slideID:      slideID,
		speakerID:    speakerID,
		verifier:     verifier,
		participants: participantStore,
		responses:    responseStore,
	}
}

func (f *gatewayFixture) dial(t *testing.T, code string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(f.server.URL, "http", "ws", 1) + "/ws/session/" + code
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return msg
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("err = %v, want close error", err)
	}
	if closeErr.Code != code {
		t.Fatalf("close code = %d, want %d", closeErr.Code, code)
	}
}

func (f *gatewayFixture) joinAudience(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoin, DisplayName: name}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if msg := readMessage(t, conn); msg["type"] != TypeSessionState {
		t.Fatalf("got %v, want session-state", msg["type"])
	}
	return conn
}

func (f *gatewayFixture) joinSpeaker(t *testing.T) *websocket.Conn {
	t.Helper()
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoinSpeaker, Token: "speaker-token"}); err != nil {
		t.Fatalf("write join-speaker: %v", err)
	}
	if msg := readMessage(t, conn); msg["type"] != TypeSessionState {
		t.Fatalf("got %v, want session-state", msg["type"])
	}
	return conn
}

func TestAudienceJoinReceivesSnapshot(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoin, DisplayName: "alice"}); err != nil {
		t.Fatalf("write join: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != TypeSessionState {
		t.Fatalf("got %v, want session-state", msg["type"])
	}
	if msg["join_code"] != "ABC234" || msg["status"] != "active" {
		t.Fatalf("unexpected snapshot %v", msg)
	}
	if msg["presentation_title"] != "Quarterly Review" {
		t.Fatalf("presentation_title = %v", msg["presentation_title"])
	}
	if msg["current_slide"] == nil {
		t.Fatal("snapshot missing current slide")
	}

	if len(f.participants.created) != 1 {
		t.Fatalf("created %d participants, want 1", len(f.participants.created))
	}
	p := f.participants.created[0]
	if p.IsAnonymous || p.DisplayName == nil || *p.DisplayName != "alice" {
		t.Fatalf("unexpected participant %+v", p)
	}
}

func TestAnonymousJoin(t *testing.T) {
	f := newGatewayFixture(t)
	f.joinAudience(t, "")
	if len(f.participants.created) != 1 {
		t.Fatalf("created %d participants, want 1", len(f.participants.created))
	}
	if !f.participants.created[0].IsAnonymous {
		t.Fatal("nameless participant not marked anonymous")
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "NOPE22")
	expectClose(t, conn, CloseSessionNotFound)
}

func TestEndedSessionRejected(t *testing.T) {
	f := newGatewayFixture(t)
	f.detail.Status = models.SessionEnded
	conn := f.dial(t, "ABC234")
	expectClose(t, conn, CloseSessionEnded)
}

func TestFirstMessageMustBeJoin(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypePing}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, conn, CloseProtocolViolation)
}

func TestSpeakerJoinRequiresToken(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoinSpeaker}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, conn, CloseAuthRequired)
}

func TestSpeakerJoinRejectsRefreshToken(t *testing.T) {
	f := newGatewayFixture(t)
	f.verifier.typ = auth.TokenTypeRefresh
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoinSpeaker, Token: "refresh-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, conn, CloseAuthRequired)
}

func TestSpeakerJoinRejectsForeignSpeaker(t *testing.T) {
	f := newGatewayFixture(t)
	f.verifier.id = uuid.New()
	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoinSpeaker, Token: "someone-elses-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, conn, CloseSessionEnded)
}

func TestSecondSpeakerRejected(t *testing.T) {
	f := newGatewayFixture(t)
	f.joinSpeaker(t)

	conn := f.dial(t, "ABC234")
	if err := conn.WriteJSON(Inbound{Type: TypeJoinSpeaker, Token: "speaker-token"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, conn, CloseSpeakerConnected)
}

func TestSubmitResponseReachesSpeakerOnly(t *testing.T) {
	f := newGatewayFixture(t)
	speaker := f.joinSpeaker(t)
	bystander := f.joinAudience(t, "bob")
	if msg := readMessage(t, speaker); msg["type"] != TypeParticipantJoined {
		t.Fatalf("speaker got %v, want participant-joined", msg["type"])
	}

	submitter := f.joinAudience(t, "alice")
	if msg := readMessage(t, speaker); msg["type"] != TypeParticipantJoined {
		t.Fatalf("speaker got %v, want participant-joined", msg["type"])
	}
	if msg := readMessage(t, bystander); msg["type"] != TypeParticipantJoined {
		t.Fatalf("bystander got %v, want participant-joined", msg["type"])
	}

	slideID := f.slideID
	err := submitter.WriteJSON(Inbound{
		Type:    TypeSubmitResponse,
		SlideID: &slideID,
		Content: json.RawMessage(`{"choice":"B"}`),
	})
	if err != nil {
		t.Fatalf("write submit-response: %v", err)
	}

	msg := readMessage(t, speaker)
	if msg["type"] != TypeResponseReceived {
		t.Fatalf("speaker got %v, want response-received", msg["type"])
	}

	// The bystander must not see the response. A ping answered with a pong
	// proves nothing else was queued ahead of it.
	if err := bystander.WriteJSON(Inbound{Type: TypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readMessage(t, bystander); msg["type"] != TypePong {
		t.Fatalf("bystander got %v, want pong", msg["type"])
	}
}

func TestSubmitWhilePausedGetsError(t *testing.T) {
	f := newGatewayFixture(t)
	f.detail.Status = models.SessionPaused
	conn := f.joinAudience(t, "alice")

	slideID := f.slideID
	err := conn.WriteJSON(Inbound{
		Type:    TypeSubmitResponse,
		SlideID: &slideID,
		Content: json.RawMessage(`{"choice":"A"}`),
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != TypeError || msg["code"] != "session-not-active" {
		t.Fatalf("got %v, want session-not-active error", msg)
	}
}

func TestDisconnectAnnouncesLeaveOnce(t *testing.T) {
	f := newGatewayFixture(t)
	speaker := f.joinSpeaker(t)
	audience := f.joinAudience(t, "alice")
	if msg := readMessage(t, speaker); msg["type"] != TypeParticipantJoined {
		t.Fatalf("speaker got %v, want participant-joined", msg["type"])
	}

	audience.Close()

	select {
	case <-f.participants.left:
	case <-time.After(3 * time.Second):
		t.Fatal("participant never marked as left")
	}
	msg := readMessage(t, speaker)
	if msg["type"] != TypeParticipantLeft {
		t.Fatalf("speaker got %v, want participant-left", msg["type"])
	}

	select {
	case <-f.participants.left:
		t.Fatal("leave handled twice")
	case <-time.After(100 * time.Millisecond):
	}
}
