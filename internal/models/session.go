package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionActive  SessionStatus = "active"
	SessionPaused  SessionStatus = "paused"
	SessionEnded   SessionStatus = "ended"
)

// Session is a live run of a presentation that audiences join by code.
// The join code is unique among non-ended sessions.
type Session struct {
	ID             uuid.UUID     `json:"id"`
	PresentationID uuid.UUID     `json:"presentation_id"`
	JoinCode       string        `json:"join_code"`
	CurrentSlideID *uuid.UUID    `json:"current_slide_id,omitempty"`
	Status         SessionStatus `json:"status"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// SessionDetail is a session loaded with its presentation context, used by
// the realtime gateway snapshot and the detail REST endpoints. Slides are
// ordered by order_index.
type SessionDetail struct {
	Session
	PresentationTitle string    `json:"presentation_title"`
	PresentationSlug  string    `json:"presentation_slug"`
	SpeakerID         uuid.UUID `json:"-"`
	Slides            []Slide   `json:"-"`
	CurrentSlide      *Slide    `json:"current_slide,omitempty"`
}

// TotalSlides returns the slide count of the session's presentation.
func (d *SessionDetail) TotalSlides() int {
	return len(d.Slides)
}

// CurrentSlideIndex returns the 0-based position of the current slide, or -1.
func (d *SessionDetail) CurrentSlideIndex() int {
	if d.CurrentSlideID == nil {
		return -1
	}
	for i, s := range d.Slides {
		if s.ID == *d.CurrentSlideID {
			return i
		}
	}
	return -1
}

// SessionSummary is a session row with aggregate counts for list views.
type SessionSummary struct {
	Session
	ParticipantCount int `json:"participant_count"`
	ResponseCount    int `json:"response_count"`
}

// SessionStatistics aggregates activity for a finished or running session.
type SessionStatistics struct {
	SessionID         uuid.UUID      `json:"session_id"`
	Status            SessionStatus  `json:"status"`
	ParticipantCount  int            `json:"participant_count"`
	TotalResponses    int            `json:"total_responses"`
	ResponsesPerSlide map[string]int `json:"responses_per_slide"`
	DurationSeconds   *int           `json:"duration_seconds,omitempty"`
}
