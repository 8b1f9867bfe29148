package handler

import (
	"errors"
	"net/http"

	"worthy-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит ошибки сервисного слоя в HTTP статусы.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, models.ErrChapterNotFound):
		statusCode = http.StatusNotFound
		message = "Chapter not found"
	case errors.Is(err, models.ErrPageNotFound):
		statusCode = http.StatusNotFound
		message = "Page not found"
	case errors.Is(err, models.ErrSketchNotFound):
		statusCode = http.StatusNotFound
		message = "Sketch not found"
	case errors.Is(err, models.ErrNoRevisions):
		statusCode = http.StatusNotFound
		message = "Page has no revisions of the requested kind"
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case errors.Is(err, models.ErrInvalidState):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		message = err.Error()
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal error occurred"
	}

	c.AbortWithStatusJSON(statusCode, models.ErrorResponse{Error: message})
}

// badRequest отвечает 400 на ошибку биндинга запроса.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request data: " + err.Error()})
}
