package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Response is an immutable answer or question submitted during a session.
// ParticipantID is nil for system-origin rows (AI answers). Content is a
// type-tagged JSONB payload stored verbatim, e.g.
//
//	{"type": "text", "text": "..."}
//	{"type": "choice", "option_id": "b"}
//	{"type": "question", "text": "..."}
//	{"type": "ai_answer", "question": "...", "text": "..."}
type Response struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	SlideID       uuid.UUID       `json:"slide_id"`
	ParticipantID *uuid.UUID      `json:"participant_id,omitempty"`
	Content       json.RawMessage `json:"content"`
	IsAIResponse  bool            `json:"is_ai_response"`
	CreatedAt     time.Time       `json:"created_at"`
}
