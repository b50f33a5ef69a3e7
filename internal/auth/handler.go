package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oratify/backend/internal/middleware"
	"github.com/oratify/backend/pkg/response"
	"github.com/oratify/backend/pkg/utils"
)

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body for POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPair is the auth response with access and refresh tokens.
type TokenPair struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Speaker      interface{} `json:"speaker,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to check email")
		return
	}
	if existing != nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	speaker, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName)
	if err != nil {
		response.Internal(c, "failed to create speaker")
		return
	}

	pair, err := h.tokenPair(speaker.ID)
	if err != nil {
		response.Internal(c, "failed to issue tokens")
		return
	}
	pair.Speaker = speaker
	response.Created(c, pair)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	speaker, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Internal(c, "failed to look up speaker")
		return
	}
	if speaker == nil || !utils.CheckPassword(req.Password, speaker.PasswordHash) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	pair, err := h.tokenPair(speaker.ID)
	if err != nil {
		response.Internal(c, "failed to issue tokens")
		return
	}
	pair.Speaker = speaker
	response.OK(c, pair)
}

// Refresh handles POST /api/auth/refresh: exchanges a refresh token for a
// new access/refresh pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	subject, tokenType, err := h.jwt.Decode(req.RefreshToken)
	if err != nil || tokenType != TokenTypeRefresh {
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	pair, err := h.tokenPair(subject)
	if err != nil {
		response.Internal(c, "failed to issue tokens")
		return
	}
	response.OK(c, pair)
}

// Me handles GET /api/auth/me (authenticated).
func (h *Handler) Me(c *gin.Context) {
	speakerID := middleware.SpeakerID(c)
	speaker, err := h.repo.GetByID(c.Request.Context(), speakerID)
	if err != nil {
		response.Internal(c, "failed to look up speaker")
		return
	}
	if speaker == nil {
		response.NotFound(c, "speaker not found")
		return
	}
	response.OK(c, speaker)
}

func (h *Handler) tokenPair(speakerID uuid.UUID) (*TokenPair, error) {
	access, err := h.jwt.GenerateAccess(speakerID)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwt.GenerateRefresh(speakerID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
