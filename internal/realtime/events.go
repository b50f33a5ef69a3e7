package realtime

import (
	"github.com/oratify/backend/internal/models"
)

// Events fans session lifecycle changes out to connected clients. It is
// the bridge the REST handlers use to reach the hub.
type Events struct {
	hub *Hub
}

// NewEvents creates the lifecycle event broadcaster.
func NewEvents(hub *Hub) *Events {
	return &Events{hub: hub}
}

// SessionStarted announces the session going active.
func (e *Events) SessionStarted(d *models.SessionDetail) {
	e.hub.BroadcastToSession(d.JoinCode, SessionStarted{
		Type:         TypeSessionStarted,
		StartedAt:    d.StartedAt,
		CurrentSlide: slideInfo(d),
	})
}

// SessionPaused announces the session pausing.
func (e *Events) SessionPaused(d *models.SessionDetail) {
	e.hub.BroadcastToSession(d.JoinCode, SessionPaused{Type: TypeSessionPaused})
}

// SessionResumed announces the session resuming.
func (e *Events) SessionResumed(d *models.SessionDetail) {
	e.hub.BroadcastToSession(d.JoinCode, SessionResumed{Type: TypeSessionResumed})
}

// SessionEnded announces the end of the session and then closes every
// connection. Queued messages, the ended notice included, drain before
// the close frame goes out.
func (e *Events) SessionEnded(d *models.SessionDetail) {
	e.hub.BroadcastToSession(d.JoinCode, SessionEnded{Type: TypeSessionEnded, EndedAt: d.EndedAt})
	e.hub.CloseSession(d.JoinCode, CloseSessionEnded, "session ended")
}

// SlideChanged announces the current slide moving. Paused sessions
// broadcast too, so reconnecting clients stay aligned.
func (e *Events) SlideChanged(d *models.SessionDetail) {
	e.hub.BroadcastToSession(d.JoinCode, NewSlideChanged(d))
}

// AIAnswerReady broadcasts a generated answer to the whole session.
func (e *Events) AIAnswerReady(joinCode string, msg AIResponse) {
	e.hub.BroadcastToSession(joinCode, msg)
}
