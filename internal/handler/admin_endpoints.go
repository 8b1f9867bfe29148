package handler

import (
	"fmt"
	"net/http"

	"worthy-server/internal/compiler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// createChapter запускает полный пайплайн сборки главы. Сборка синхронная:
// админка ждет результата, как ждала завершения build-скрипта.
func (h *Handler) createChapter(c *gin.Context) {
	var req compiler.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.logger.Info("Creating chapter", zap.String("chapterID", req.ID))

	result, err := h.pipeline.CreateChapter(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createChapterResponse{
		Success:     true,
		Message:     fmt.Sprintf("Chapter %s created successfully", result.ChapterID),
		ChapterID:   result.ChapterID,
		ChapterPath: result.ChapterPath,
	})
}

func (h *Handler) chapterStatus(c *gin.Context) {
	manifest, err := h.pipeline.ChapterStatus(c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	images := manifest.Images
	if images == nil {
		images = &compiler.ImageStats{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"chapterId": manifest.ChapterID,
		"status":    "complete",
		"panels":    manifest.PanelCount,
		"style":     manifest.StyleID,
		"images":    images,
		"createdAt": manifest.CreatedAt,
	})
}
