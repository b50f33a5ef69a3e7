package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/oratify/backend/internal/models"
)

// Inbound message types, sent by clients.
const (
	TypeJoin           = "join"
	TypeJoinSpeaker    = "join-speaker"
	TypeSubmitResponse = "submit-response"
	TypeAskQuestion    = "ask-question"
	TypePing           = "ping"
)

// Outbound message types, sent by the server.
const (
	TypeSessionState      = "session-state"
	TypeSlideChanged      = "slide-changed"
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeSessionStarted    = "session-started"
	TypeSessionPaused     = "session-paused"
	TypeSessionResumed    = "session-resumed"
	TypeSessionEnded      = "session-ended"
	TypeResponseReceived  = "response-received"
	TypeQuestionAsked     = "question-asked"
	TypeAIResponse        = "ai-response"
	TypeError             = "error"
	TypePong              = "pong"
)

// WebSocket close codes in the application range.
const (
	CloseProtocolViolation = 4000
	CloseAuthRequired      = 4001
	CloseSpeakerConnected  = 4002
	CloseSessionEnded      = 4003
	CloseSessionNotFound   = 4004
)

// Inbound is the envelope for every client message. Only the fields
// relevant to the given type are populated.
type Inbound struct {
	Type        string          `json:"type"`
	DisplayName string          `json:"display_name,omitempty"`
	Token       string          `json:"token,omitempty"`
	SlideID     *uuid.UUID      `json:"slide_id,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Question    string          `json:"question,omitempty"`
}

// SlideInfo is the audience-facing view of a slide.
type SlideInfo struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
	Index   int             `json:"index"`
	Total   int             `json:"total"`
}

// slideInfo resolves the current slide from the detail. Loaders that only
// set CurrentSlideID are handled by searching the slide list, so the view
// is the same no matter which query built the detail.
func slideInfo(d *models.SessionDetail) *SlideInfo {
	s := d.CurrentSlide
	if s == nil && d.CurrentSlideID != nil {
		for i := range d.Slides {
			if d.Slides[i].ID == *d.CurrentSlideID {
				s = &d.Slides[i]
				break
			}
		}
	}
	if s == nil {
		return nil
	}
	return &SlideInfo{
		ID:      s.ID,
		Type:    s.Type,
		Content: s.Content,
		Index:   d.CurrentSlideIndex(),
		Total:   d.TotalSlides(),
	}
}

// SessionState is the snapshot sent to a client right after it joins.
type SessionState struct {
	Type              string               `json:"type"`
	SessionID         uuid.UUID            `json:"session_id"`
	JoinCode          string               `json:"join_code"`
	Status            models.SessionStatus `json:"status"`
	PresentationTitle string               `json:"presentation_title"`
	CurrentSlide      *SlideInfo           `json:"current_slide"`
	TotalSlides       int                  `json:"total_slides"`
	ParticipantCount  int                  `json:"participant_count"`
}

// NewSessionState builds the join snapshot.
func NewSessionState(d *models.SessionDetail, participantCount int) SessionState {
	return SessionState{
		Type:              TypeSessionState,
		SessionID:         d.ID,
		JoinCode:          d.JoinCode,
		Status:            d.Status,
		PresentationTitle: d.PresentationTitle,
		CurrentSlide:      slideInfo(d),
		TotalSlides:       d.TotalSlides(),
		ParticipantCount:  participantCount,
	}
}

// SlideChanged announces the speaker moving to another slide.
type SlideChanged struct {
	Type       string     `json:"type"`
	Slide      *SlideInfo `json:"slide"`
	SlideIndex int        `json:"slide_index"`
}

// NewSlideChanged builds a slide-changed broadcast.
func NewSlideChanged(d *models.SessionDetail) SlideChanged {
	return SlideChanged{
		Type:       TypeSlideChanged,
		Slide:      slideInfo(d),
		SlideIndex: d.CurrentSlideIndex(),
	}
}

// ParticipantJoined announces a new audience member to the session.
type ParticipantJoined struct {
	Type             string    `json:"type"`
	ParticipantID    uuid.UUID `json:"participant_id"`
	DisplayName      string    `json:"display_name,omitempty"`
	IsAnonymous      bool      `json:"is_anonymous"`
	ParticipantCount int       `json:"participant_count"`
}

// ParticipantLeft announces an audience member disconnecting.
type ParticipantLeft struct {
	Type             string    `json:"type"`
	ParticipantID    uuid.UUID `json:"participant_id"`
	ParticipantCount int       `json:"participant_count"`
}

// SessionStarted announces the session going active.
type SessionStarted struct {
	Type         string     `json:"type"`
	StartedAt    *time.Time `json:"started_at"`
	CurrentSlide *SlideInfo `json:"current_slide,omitempty"`
}

// SessionPaused announces the session pausing.
type SessionPaused struct {
	Type string `json:"type"`
}

// SessionResumed announces the session resuming.
type SessionResumed struct {
	Type string `json:"type"`
}

// SessionEnded announces the terminal transition.
type SessionEnded struct {
	Type    string     `json:"type"`
	EndedAt *time.Time `json:"ended_at"`
}

// ResponseReceived carries a submitted response to the speaker.
type ResponseReceived struct {
	Type          string          `json:"type"`
	ResponseID    uuid.UUID       `json:"response_id"`
	SlideID       uuid.UUID       `json:"slide_id"`
	ParticipantID *uuid.UUID      `json:"participant_id,omitempty"`
	DisplayName   string          `json:"display_name,omitempty"`
	Content       json.RawMessage `json:"content"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewResponseReceived builds a response-received message.
func NewResponseReceived(r *models.Response, displayName string) ResponseReceived {
	return ResponseReceived{
		Type:          TypeResponseReceived,
		ResponseID:    r.ID,
		SlideID:       r.SlideID,
		ParticipantID: r.ParticipantID,
		DisplayName:   displayName,
		Content:       r.Content,
		CreatedAt:     r.CreatedAt,
	}
}

// QuestionAsked carries an audience question to the speaker.
type QuestionAsked struct {
	Type          string     `json:"type"`
	ResponseID    uuid.UUID  `json:"response_id"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	DisplayName   string     `json:"display_name,omitempty"`
	Question      string     `json:"question"`
}

// AIResponse carries a generated answer to an audience question.
type AIResponse struct {
	Type       string          `json:"type"`
	ResponseID uuid.UUID       `json:"response_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	SlideID    uuid.UUID       `json:"slide_id"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ErrorMessage reports a recoverable protocol or validation error without
// closing the connection.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an error message.
func NewError(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

// Pong answers a client ping.
type Pong struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPong builds a pong message stamped with the server time.
func NewPong() Pong {
	return Pong{Type: TypePong, Timestamp: time.Now().UTC()}
}

func marshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","code":"internal","message":"encoding failed"}`)
	}
	return b
}
