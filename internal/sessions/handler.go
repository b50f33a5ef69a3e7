package sessions

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oratify/backend/internal/middleware"
	"github.com/oratify/backend/internal/models"
	"github.com/oratify/backend/internal/presentations"
	"github.com/oratify/backend/internal/slides"
	"github.com/oratify/backend/pkg/response"
)

// Notifier pushes session lifecycle events to connected clients.
type Notifier interface {
	SessionStarted(d *models.SessionDetail)
	SessionPaused(d *models.SessionDetail)
	SessionResumed(d *models.SessionDetail)
	SessionEnded(d *models.SessionDetail)
	SlideChanged(d *models.SessionDetail)
}

// ChangeSlideRequest is the body for PUT /api/sessions/:id/current-slide.
type ChangeSlideRequest struct {
	SlideID uuid.UUID `json:"slide_id" binding:"required"`
}

// ListResponse wraps a session page with its total count.
type ListResponse struct {
	Sessions []models.SessionSummary `json:"sessions"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo          *Repository
	lifecycle     *Lifecycle
	presentations *presentations.Repository
	slides        *slides.Repository
	notifier      Notifier
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository, lifecycle *Lifecycle, presentationRepo *presentations.Repository, slideRepo *slides.Repository, notifier Notifier) *Handler {
	return &Handler{
		repo:          repo,
		lifecycle:     lifecycle,
		presentations: presentationRepo,
		slides:        slideRepo,
		notifier:      notifier,
	}
}

// Create handles POST /api/presentations/:id/sessions. The new session
// starts pending with the presentation's first slide preselected.
func (h *Handler) Create(c *gin.Context) {
	presentationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid presentation id")
		return
	}
	ctx := c.Request.Context()

	owned, err := h.presentations.IsOwnedBy(ctx, presentationID, middleware.SpeakerID(c))
	if err != nil {
		response.Internal(c, "failed to check presentation")
		return
	}
	if !owned {
		response.NotFound(c, "presentation not found")
		return
	}

	code, err := AllocateJoinCode(ctx, h.repo)
	if err != nil {
		if errors.Is(err, ErrJoinCodeExhausted) {
			response.ServiceUnavailable(c, "could not allocate a join code, try again")
			return
		}
		response.Internal(c, "failed to allocate join code")
		return
	}

	s := &models.Session{
		PresentationID: presentationID,
		JoinCode:       code,
		Status:         models.SessionPending,
	}
	first, err := h.slides.First(ctx, presentationID)
	if err != nil {
		response.Internal(c, "failed to load slides")
		return
	}
	if first != nil {
		s.CurrentSlideID = &first.ID
	}
	if err := h.repo.Create(ctx, s); err != nil {
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// List handles GET /api/sessions with optional status, page and page_size.
func (h *Handler) List(c *gin.Context) {
	status := models.SessionStatus(c.Query("status"))
	switch status {
	case "", models.SessionPending, models.SessionActive, models.SessionPaused, models.SessionEnded:
	default:
		response.BadRequest(c, "invalid status filter")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	list, total, err := h.repo.List(c.Request.Context(), middleware.SpeakerID(c), status, pageSize, (page-1)*pageSize)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, ListResponse{Sessions: list, Total: total, Page: page, PageSize: pageSize})
}

// GetByID handles GET /api/sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	d, ok := h.ownedSession(c)
	if !ok {
		return
	}
	response.OK(c, d)
}

// GetByCode handles GET /api/join/:code. Public, live sessions only.
func (h *Handler) GetByCode(c *gin.Context) {
	d, err := h.repo.DetailByJoinCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if d == nil || d.Status == models.SessionEnded {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, d)
}

// GetBySlug handles GET /api/live/:slug. Public, returns the newest live
// session of the presentation.
func (h *Handler) GetBySlug(c *gin.Context) {
	d, err := h.repo.DetailBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if d == nil {
		response.NotFound(c, "no live session for this presentation")
		return
	}
	response.OK(c, d)
}

// Start handles POST /api/sessions/:id/start.
func (h *Handler) Start(c *gin.Context) {
	h.transition(c, h.lifecycle.Start, func(d *models.SessionDetail) { h.notifier.SessionStarted(d) })
}

// Pause handles POST /api/sessions/:id/pause.
func (h *Handler) Pause(c *gin.Context) {
	h.transition(c, h.lifecycle.Pause, func(d *models.SessionDetail) { h.notifier.SessionPaused(d) })
}

// Resume handles POST /api/sessions/:id/resume.
func (h *Handler) Resume(c *gin.Context) {
	h.transition(c, h.lifecycle.Resume, func(d *models.SessionDetail) { h.notifier.SessionResumed(d) })
}

// End handles POST /api/sessions/:id/end.
func (h *Handler) End(c *gin.Context) {
	h.transition(c, h.lifecycle.End, func(d *models.SessionDetail) { h.notifier.SessionEnded(d) })
}

// ChangeSlide handles PUT /api/sessions/:id/current-slide.
func (h *Handler) ChangeSlide(c *gin.Context) {
	d, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req ChangeSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	d, err := h.lifecycle.ChangeSlide(c.Request.Context(), d.ID, req.SlideID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionEnded):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrSlideNotInPresentation):
			response.BadRequest(c, err.Error())
		default:
			response.Internal(c, "failed to change slide")
		}
		return
	}
	h.notifier.SlideChanged(d)
	response.OK(c, d)
}

// Statistics handles GET /api/sessions/:id/statistics.
func (h *Handler) Statistics(c *gin.Context) {
	d, ok := h.ownedSession(c)
	if !ok {
		return
	}
	stats, err := h.repo.Statistics(c.Request.Context(), d.ID)
	if err != nil || stats == nil {
		response.Internal(c, "failed to load statistics")
		return
	}
	response.OK(c, stats)
}

func (h *Handler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error), notify func(*models.SessionDetail)) {
	d, ok := h.ownedSession(c)
	if !ok {
		return
	}
	d, err := apply(c.Request.Context(), d.ID)
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			response.Conflict(c, invalid.Error())
		case errors.Is(err, ErrSessionNotFound):
			response.NotFound(c, "session not found")
		default:
			response.Internal(c, "failed to update session")
		}
		return
	}
	notify(d)
	response.OK(c, d)
}

// ownedSession loads the :id session and verifies the caller owns its
// presentation. Missing and not-owned both read as 404.
func (h *Handler) ownedSession(c *gin.Context) (*models.SessionDetail, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	d, err := h.repo.DetailByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load session")
		return nil, false
	}
	if d == nil || d.SpeakerID != middleware.SpeakerID(c) {
		response.NotFound(c, "session not found")
		return nil, false
	}
	return d, true
}
