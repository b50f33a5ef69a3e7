package models

import (
	"time"

	"github.com/google/uuid"
)

// Presentation is a deck of slides owned by a speaker. The slug is the
// public URL handle audiences can use to find the current live session.
type Presentation struct {
	ID          uuid.UUID `json:"id"`
	SpeakerID   uuid.UUID `json:"speaker_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
