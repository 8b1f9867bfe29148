package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getChapter(c *gin.Context) {
	chapter, err := h.reader.GetChapter(c.Request.Context(), c.Param("chapterId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapter)
}

func (h *Handler) saveProgress(c *gin.Context) {
	var req saveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.reader.SaveProgress(c.Request.Context(), c.Param("chapterId"), req.UserID, req.PanelIndex, req.ChoicesPath)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (h *Handler) generateContinuation(c *gin.Context) {
	var req generateContinuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	continuation, err := h.reader.GenerateContinuation(c.Request.Context(), req.ChoiceID, req.SelectedBranch, req.Context)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, continuation)
}

func (h *Handler) validateChoice(c *gin.Context) {
	var req validateChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, validateChoiceResponse{
		Valid: h.reader.ValidateChoice(req.ChoiceID, req.SelectedBranch),
	})
}
