package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is an audience member who joined a session. The row survives
// disconnect: left_at is set and the connection correlation cleared when the
// socket goes away.
type Participant struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	DisplayName  *string    `json:"display_name,omitempty"`
	ConnectionID *string    `json:"-"`
	IsAnonymous  bool       `json:"is_anonymous"`
	JoinedAt     time.Time  `json:"joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
}
