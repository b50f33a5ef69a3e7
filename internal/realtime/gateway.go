package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oratify/backend/internal/auth"
	"github.com/oratify/backend/internal/models"
)

// ErrSessionNotFound is returned when no live session holds the join code.
var ErrSessionNotFound = errors.New("session not found")

// joinTimeout bounds how long a fresh connection may sit silent before
// sending its join message.
const joinTimeout = 10 * time.Second

// SessionStore resolves live sessions by join code.
type SessionStore interface {
	DetailByJoinCode(ctx context.Context, code string) (*models.SessionDetail, error)
}

// ParticipantStore persists audience membership.
type ParticipantStore interface {
	Create(ctx context.Context, p *models.Participant) error
	MarkLeft(ctx context.Context, id uuid.UUID, leftAt time.Time) error
}

// ResponseStore persists responses.
type ResponseStore interface {
	Create(ctx context.Context, r *models.Response) error
}

// TokenVerifier decodes a bearer token into its subject and token type.
type TokenVerifier interface {
	Decode(token string) (uuid.UUID, string, error)
}

// Gateway upgrades HTTP requests to WebSocket connections and speaks the
// session protocol: the first client message must be a join or
// join-speaker, everything after that is dispatched to the ingestor.
type Gateway struct {
	upgrader     websocket.Upgrader
	sessions     SessionStore
	participants ParticipantStore
	ingest       *Ingestor
	hub          *Hub
	verifier     TokenVerifier
	logger       *zap.Logger
}

// NewGateway creates the WebSocket gateway.
func NewGateway(sessions SessionStore, participants ParticipantStore, ingest *Ingestor, hub *Hub, verifier TokenVerifier, logger *zap.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions:     sessions,
		participants: participants,
		ingest:       ingest,
		hub:          hub,
		verifier:     verifier,
		logger:       logger,
	}
}

// Handle is the gin handler for GET /ws/session/:code.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	go g.serve(conn, c.Param("code"))
}

func (g *Gateway) serve(ws *websocket.Conn, code string) {
	ctx := context.Background()

	d, err := g.sessions.DetailByJoinCode(ctx, code)
	if err != nil {
		g.logger.Error("failed to load session for websocket", zap.Error(err))
		reject(ws, CloseProtocolViolation, "internal error")
		return
	}
	if d == nil {
		reject(ws, CloseSessionNotFound, "session not found")
		return
	}
	if d.Status == models.SessionEnded {
		reject(ws, CloseSessionEnded, "session has ended")
		return
	}

	ws.SetReadDeadline(time.Now().Add(joinTimeout))
	var first Inbound
	if err := ws.ReadJSON(&first); err != nil {
		reject(ws, CloseProtocolViolation, "expected a join message")
		return
	}

	var c *Connection
	switch first.Type {
	case TypeJoin:
		c = g.joinAudience(ctx, ws, d, first)
	case TypeJoinSpeaker:
		c = g.joinSpeaker(ws, d, first)
	default:
		reject(ws, CloseProtocolViolation, "first message must be join or join-speaker")
		return
	}
	if c == nil {
		return
	}

	go c.writePump()
	c.prepareRead()

	g.hub.Send(c, NewSessionState(d, g.hub.AudienceCount(d.JoinCode)))
	if c.Role == RoleAudience {
		joined := ParticipantJoined{
			Type:             TypeParticipantJoined,
			ParticipantID:    *c.ParticipantID,
			DisplayName:      c.DisplayName,
			IsAnonymous:      c.DisplayName == "",
			ParticipantCount: g.hub.AudienceCount(d.JoinCode),
		}
		g.hub.SendToSpeaker(d.JoinCode, joined)
		g.hub.BroadcastToAudience(d.JoinCode, joined, c.ID)
	}

	g.readLoop(c)
	g.disconnect(c)
}

func (g *Gateway) joinAudience(ctx context.Context, ws *websocket.Conn, d *models.SessionDetail, msg Inbound) *Connection {
	c := newConnection(ws, d.JoinCode, RoleAudience)
	c.DisplayName = msg.DisplayName

	p := &models.Participant{
		SessionID:    d.ID,
		ConnectionID: &c.ID,
		IsAnonymous:  msg.DisplayName == "",
	}
	if msg.DisplayName != "" {
		p.DisplayName = &msg.DisplayName
	}
	if err := g.participants.Create(ctx, p); err != nil {
		g.logger.Error("failed to create participant", zap.Error(err))
		reject(ws, CloseProtocolViolation, "internal error")
		return nil
	}
	c.ParticipantID = &p.ID

	if err := g.hub.Register(c); err != nil {
		reject(ws, CloseProtocolViolation, err.Error())
		return nil
	}
	return c
}

func (g *Gateway) joinSpeaker(ws *websocket.Conn, d *models.SessionDetail, msg Inbound) *Connection {
	if msg.Token == "" {
		reject(ws, CloseAuthRequired, "token required")
		return nil
	}
	speakerID, tokenType, err := g.verifier.Decode(msg.Token)
	if err != nil || tokenType != auth.TokenTypeAccess {
		reject(ws, CloseAuthRequired, "invalid token")
		return nil
	}
	if speakerID != d.SpeakerID {
		reject(ws, CloseSessionEnded, "not the speaker of this session")
		return nil
	}

	c := newConnection(ws, d.JoinCode, RoleSpeaker)
	if err := g.hub.Register(c); err != nil {
		if errors.Is(err, ErrSpeakerConnected) {
			reject(ws, CloseSpeakerConnected, err.Error())
		} else {
			reject(ws, CloseProtocolViolation, err.Error())
		}
		return nil
	}
	return c
}

func (g *Gateway) readLoop(c *Connection) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			g.hub.Send(c, NewError("invalid-payload", "message is not valid JSON"))
			continue
		}
		g.dispatch(c, msg)
	}
}

func (g *Gateway) dispatch(c *Connection, msg Inbound) {
	ctx := context.Background()

	switch msg.Type {
	case TypeSubmitResponse:
		if msg.SlideID == nil || len(msg.Content) == 0 {
			g.hub.Send(c, NewError("invalid-payload", "submit-response requires slide_id and content"))
			return
		}
		if _, err := g.ingest.Submit(ctx, c, *msg.SlideID, msg.Content); err != nil {
			g.hub.Send(c, submitError(err))
		}
	case TypeAskQuestion:
		if msg.Question == "" {
			g.hub.Send(c, NewError("invalid-payload", "ask-question requires question"))
			return
		}
		if _, err := g.ingest.AskQuestion(ctx, c, msg.Question); err != nil {
			g.hub.Send(c, submitError(err))
		}
	case TypePing:
		g.hub.Send(c, NewPong())
	case TypeJoin, TypeJoinSpeaker:
		g.hub.Send(c, NewError("already-joined", "connection has already joined"))
	default:
		g.logger.Debug("ignoring unknown message type",
			zap.String("type", msg.Type),
			zap.String("connection_id", c.ID))
	}
}

func submitError(err error) ErrorMessage {
	switch {
	case errors.Is(err, ErrForbidden):
		return NewError("forbidden", err.Error())
	case errors.Is(err, ErrSessionNotActive):
		return NewError("session-not-active", err.Error())
	case errors.Is(err, ErrSessionNotFound):
		return NewError("session-not-found", err.Error())
	case errors.Is(err, ErrUnknownSlide):
		return NewError("unknown-slide", err.Error())
	case errors.Is(err, ErrNoCurrentSlide):
		return NewError("no-current-slide", err.Error())
	default:
		return NewError("internal", "failed to process message")
	}
}

// disconnect tears down a connection once its read loop exits. Leave
// handling runs only if the hub still knew the connection, so a session
// ending and a socket dropping at the same time announce one leave.
func (g *Gateway) disconnect(c *Connection) {
	c.Close(websocket.CloseNormalClosure, "")
	if !g.hub.Unregister(c) {
		return
	}
	if c.Role != RoleAudience || c.ParticipantID == nil {
		return
	}

	left := ParticipantLeft{
		Type:             TypeParticipantLeft,
		ParticipantID:    *c.ParticipantID,
		ParticipantCount: g.hub.AudienceCount(c.JoinCode),
	}
	g.hub.SendToSpeaker(c.JoinCode, left)
	g.hub.BroadcastToAudience(c.JoinCode, left, c.ID)

	if err := g.participants.MarkLeft(context.Background(), *c.ParticipantID, time.Now()); err != nil {
		g.logger.Error("failed to mark participant left",
			zap.String("participant_id", c.ParticipantID.String()), zap.Error(err))
	}
}

// reject closes a connection that never completed the join handshake.
func reject(ws *websocket.Conn, code int, reason string) {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	ws.Close()
}
