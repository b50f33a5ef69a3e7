package presentations

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oratify/backend/internal/middleware"
	"github.com/oratify/backend/internal/models"
	"github.com/oratify/backend/pkg/response"
)

// CreateRequest is the body for POST /api/presentations.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PUT /api/presentations/:id.
type UpdateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Handler handles presentation HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a presentations handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /api/presentations.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Title)
	}

	p := &models.Presentation{
		SpeakerID:   middleware.SpeakerID(c),
		Title:       req.Title,
		Slug:        slug,
		Description: req.Description,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		response.Conflict(c, "failed to create presentation (slug may be taken)")
		return
	}
	response.Created(c, p)
}

// List handles GET /api/presentations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListBySpeaker(c.Request.Context(), middleware.SpeakerID(c))
	if err != nil {
		response.Internal(c, "failed to list presentations")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /api/presentations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	p, ok := h.ownedPresentation(c)
	if !ok {
		return
	}
	response.OK(c, p)
}

// Update handles PUT /api/presentations/:id.
func (h *Handler) Update(c *gin.Context) {
	p, ok := h.ownedPresentation(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), p.ID, req.Title, req.Description); err != nil {
		response.Internal(c, "failed to update presentation")
		return
	}
	p.Title = req.Title
	p.Description = req.Description
	response.OK(c, p)
}

// Delete handles DELETE /api/presentations/:id.
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.ownedPresentation(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID); err != nil {
		response.Internal(c, "failed to delete presentation")
		return
	}
	response.NoContent(c)
}

// ownedPresentation loads the :id presentation and verifies ownership.
// Missing and not-owned are both reported as 404 so ownership is not leaked.
func (h *Handler) ownedPresentation(c *gin.Context) (*models.Presentation, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid presentation id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load presentation")
		return nil, false
	}
	if p == nil || p.SpeakerID != middleware.SpeakerID(c) {
		response.NotFound(c, "presentation not found")
		return nil, false
	}
	return p, true
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
