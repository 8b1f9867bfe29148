package handler

import (
	"net/http"

	"worthy-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pageID парсит :pageId из пути. При ошибке отвечает 400 и возвращает false.
func pageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("pageId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid page ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) startPage(c *gin.Context) {
	var req startPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.orchestrator.StartPage(c.Request.Context(), req.ChapterID, req.UserInput)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *Handler) getPageStatus(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}

	page, err := h.orchestrator.GetPageContext(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) updateNarration(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	var req updateNarrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.orchestrator.UpdateNarration(c.Request.Context(), id, req.NarrationText, req.toModel())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) approveNarration(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.ApproveNarration(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) reviseNarration(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	var req reviseNarrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.orchestrator.RequestNarrationRevision(c.Request.Context(), id, req.Feedback)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) updateDialogue(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	var req updateDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.orchestrator.UpdateDialogue(c.Request.Context(), id, req.Dialogue, req.toModel())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) approveDialogue(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.ApproveDialogue(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getPageHistory(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}

	history, err := h.orchestrator.GetPageHistory(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// getPageContext собирает и форматирует контекст агента для страницы.
func (h *Handler) getPageContext(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}

	page, err := h.orchestrator.GetPageContext(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	agentCtx, err := h.contexts.BuildContext(c.Request.Context(), page.ChapterID, page.PageNumber, page.UserInput)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pageContextResponse{
		PageID:          page.ID.String(),
		Status:          page.Status,
		Context:         agentCtx,
		FormattedPrompt: h.contexts.FormatContextForPrompt(agentCtx),
	})
}

func (h *Handler) listChapterProgress(c *gin.Context) {
	progress, err := h.orchestrator.ListChapterProgress(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": progress})
}

func (h *Handler) listChapterPages(c *gin.Context) {
	pages, err := h.orchestrator.ListChapterPages(c.Request.Context(), c.Param("chapterId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pages})
}
