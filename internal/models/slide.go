package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Slide types. Content is a JSONB payload whose shape depends on the type.
const (
	SlideTypeContent        = "content"
	SlideTypeMultipleChoice = "multiple_choice"
	SlideTypeFreeText       = "free_text"
	SlideTypeWordCloud      = "word_cloud"
)

// Slide is one slide in a presentation, ordered by OrderIndex (0-based).
type Slide struct {
	ID             uuid.UUID       `json:"id"`
	PresentationID uuid.UUID       `json:"presentation_id"`
	OrderIndex     int             `json:"order_index"`
	Type           string          `json:"type"`
	Content        json.RawMessage `json:"content"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
