package slides

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oratify/backend/internal/middleware"
	"github.com/oratify/backend/internal/models"
	"github.com/oratify/backend/internal/presentations"
	"github.com/oratify/backend/pkg/response"
)

// CreateRequest is the body for POST /api/presentations/:id/slides.
type CreateRequest struct {
	Type    string          `json:"type" binding:"required,oneof=content multiple_choice free_text word_cloud"`
	Content json.RawMessage `json:"content" binding:"required"`
}

// UpdateRequest is the body for PUT /api/slides/:id.
type UpdateRequest struct {
	Type    string          `json:"type" binding:"required,oneof=content multiple_choice free_text word_cloud"`
	Content json.RawMessage `json:"content" binding:"required"`
}

// ReorderRequest is the body for PUT /api/presentations/:id/slides/reorder.
type ReorderRequest struct {
	SlideIDs []uuid.UUID `json:"slide_ids" binding:"required,min=1"`
}

// Handler handles slide HTTP endpoints.
type Handler struct {
	repo         *Repository
	presentation *presentations.Repository
}

// NewHandler creates a slides handler.
func NewHandler(repo *Repository, presentationRepo *presentations.Repository) *Handler {
	return &Handler{repo: repo, presentation: presentationRepo}
}

// List handles GET /api/presentations/:id/slides.
func (h *Handler) List(c *gin.Context) {
	presentationID, ok := h.ownedPresentationID(c)
	if !ok {
		return
	}
	list, err := h.repo.ListByPresentation(c.Request.Context(), presentationID)
	if err != nil {
		response.Internal(c, "failed to list slides")
		return
	}
	response.OK(c, list)
}

// Create handles POST /api/presentations/:id/slides.
func (h *Handler) Create(c *gin.Context) {
	presentationID, ok := h.ownedPresentationID(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := &models.Slide{
		PresentationID: presentationID,
		Type:           req.Type,
		Content:        req.Content,
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.Internal(c, "failed to create slide")
		return
	}
	response.Created(c, s)
}

// GetByID handles GET /api/slides/:id.
func (h *Handler) GetByID(c *gin.Context) {
	s, ok := h.ownedSlide(c)
	if !ok {
		return
	}
	response.OK(c, s)
}

// Update handles PUT /api/slides/:id.
func (h *Handler) Update(c *gin.Context) {
	s, ok := h.ownedSlide(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), s.ID, req.Type, req.Content); err != nil {
		response.Internal(c, "failed to update slide")
		return
	}
	s.Type = req.Type
	s.Content = req.Content
	response.OK(c, s)
}

// Delete handles DELETE /api/slides/:id.
func (h *Handler) Delete(c *gin.Context) {
	s, ok := h.ownedSlide(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), s.ID); err != nil {
		response.Internal(c, "failed to delete slide")
		return
	}
	response.NoContent(c)
}

// Reorder handles PUT /api/presentations/:id/slides/reorder.
func (h *Handler) Reorder(c *gin.Context) {
	presentationID, ok := h.ownedPresentationID(c)
	if !ok {
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Reorder(c.Request.Context(), presentationID, req.SlideIDs); err != nil {
		response.BadRequest(c, "failed to reorder slides: "+err.Error())
		return
	}
	list, err := h.repo.ListByPresentation(c.Request.Context(), presentationID)
	if err != nil {
		response.Internal(c, "failed to list slides")
		return
	}
	response.OK(c, list)
}

func (h *Handler) ownedPresentationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid presentation id")
		return uuid.Nil, false
	}
	owned, err := h.presentation.IsOwnedBy(c.Request.Context(), id, middleware.SpeakerID(c))
	if err != nil {
		response.Internal(c, "failed to check presentation")
		return uuid.Nil, false
	}
	if !owned {
		response.NotFound(c, "presentation not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) ownedSlide(c *gin.Context) (*models.Slide, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid slide id")
		return nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load slide")
		return nil, false
	}
	if s == nil {
		response.NotFound(c, "slide not found")
		return nil, false
	}
	owned, err := h.presentation.IsOwnedBy(c.Request.Context(), s.PresentationID, middleware.SpeakerID(c))
	if err != nil {
		response.Internal(c, "failed to check presentation")
		return nil, false
	}
	if !owned {
		response.NotFound(c, "slide not found")
		return nil, false
	}
	return s, true
}
