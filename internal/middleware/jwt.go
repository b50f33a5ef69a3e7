package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oratify/backend/pkg/response"
)

const (
	// ContextSpeakerID is the key for the authenticated speaker ID in gin context.
	ContextSpeakerID = "speaker_id"

	// tokenTypeAccess is the "type" claim value of short-lived bearer
	// tokens; refresh tokens carry a different value and are rejected.
	tokenTypeAccess = "access"
)

// TokenDecoder validates a bearer token and returns the subject and token type.
type TokenDecoder interface {
	Decode(token string) (uuid.UUID, string, error)
}

// JWT returns a middleware that validates a speaker access token and sets
// the speaker ID in context. Refresh tokens are rejected here.
func JWT(decoder TokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		subject, tokenType, err := decoder.Decode(parts[1])
		if err != nil || tokenType != tokenTypeAccess {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextSpeakerID, subject)
		c.Next()
	}
}

// SpeakerID returns the authenticated speaker ID from context. Panics if the
// JWT middleware did not run, matching gin's MustGet behavior.
func SpeakerID(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextSpeakerID).(uuid.UUID)
}
