package uploads

import (
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oratify/backend/pkg/response"
	"github.com/oratify/backend/pkg/storage"
)

// Handler handles slide image uploads backed by S3.
type Handler struct {
	store *storage.S3
}

// NewHandler creates an uploads handler.
func NewHandler(store *storage.S3) *Handler {
	return &Handler{store: store}
}

// UploadResult is the body returned after a successful upload.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// UploadImage handles POST /api/uploads/images with a multipart "file" part.
func (h *Handler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxImageSize {
		response.BadRequest(c, "file exceeds the 5MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	if contentType == "" {
		contentType = storage.AllowedImageExtensions[strings.ToLower(path.Ext(header.Filename))]
	}

	key := storage.ImageKey(uuid.NewString() + strings.ToLower(path.Ext(header.Filename)))
	if _, err := h.store.Upload(c.Request.Context(), key, contentType, file); err != nil {
		response.Internal(c, "upload failed")
		return
	}
	url, err := h.store.PresignGet(c.Request.Context(), key)
	if err != nil {
		response.Internal(c, "failed to sign url")
		return
	}
	response.Created(c, UploadResult{Key: key, URL: url})
}

// GetImageURL handles GET /api/uploads/images/:key and returns a fresh
// pre-signed URL.
func (h *Handler) GetImageURL(c *gin.Context) {
	key := storage.ImageKey(c.Param("key"))
	url, err := h.store.PresignGet(c.Request.Context(), key)
	if err != nil {
		response.Internal(c, "failed to sign url")
		return
	}
	response.OK(c, UploadResult{Key: key, URL: url})
}

// DeleteImage handles DELETE /api/uploads/images/:key.
func (h *Handler) DeleteImage(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), storage.ImageKey(c.Param("key"))); err != nil {
		response.Internal(c, "delete failed")
		return
	}
	response.NoContent(c)
}
