package handler

import (
	"net/http"

	"worthy-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) generateSketch(c *gin.Context) {
	var req generateSketchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sketch, err := h.sketches.Generate(c.Request.Context(), req.Prompt, req.Style, req.Mood, req.PanelID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sketch)
}

func (h *Handler) getSketch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("sketchId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid sketch ID"})
		return
	}

	sketch, err := h.sketches.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sketch)
}
