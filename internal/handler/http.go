package handler

import (
	"context"
	"encoding/json"

	"worthy-server/internal/compiler"
	"worthy-server/internal/models"
	"worthy-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrchestratorService — операции state machine страниц, которые нужны HTTP-слою.
type OrchestratorService interface {
	StartPage(ctx context.Context, chapterID, userInput string) (*models.StoryPage, error)
	UpdateNarration(ctx context.Context, pageID uuid.UUID, narrationText string, meta *models.AgentMetadata) (*service.TransitionResult, error)
	ApproveNarration(ctx context.Context, pageID uuid.UUID) (*service.TransitionResult, error)
	RequestNarrationRevision(ctx context.Context, pageID uuid.UUID, feedbackText string) (*service.TransitionResult, error)
	UpdateDialogue(ctx context.Context, pageID uuid.UUID, dialogue []models.DialogueLine, meta *models.AgentMetadata) (*service.TransitionResult, error)
	ApproveDialogue(ctx context.Context, pageID uuid.UUID) (*service.TransitionResult, error)
	GetPageContext(ctx context.Context, pageID uuid.UUID) (*models.StoryPage, error)
	GetPageHistory(ctx context.Context, pageID uuid.UUID) (*service.PageHistory, error)
	ListChapterProgress(ctx context.Context) ([]models.ChapterProgress, error)
	ListChapterPages(ctx context.Context, chapterID string) ([]models.PageStatusSummary, error)
}

// ContextService — сборка контекста агента для страницы.
type ContextService interface {
	BuildContext(ctx context.Context, chapterID string, pageNumber int, userInput string) (*models.AgentContext, error)
	FormatContextForPrompt(agentCtx *models.AgentContext) string
}

// ReaderService — читательская сторона: главы, прогресс, генерация выбора.
type ReaderService interface {
	GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error)
	SaveProgress(ctx context.Context, chapterID, userID string, panelIndex int, choicesPath json.RawMessage) error
	GenerateContinuation(ctx context.Context, choiceID, selectedBranch string, choiceCtx service.ChoiceContext) (*service.Continuation, error)
	ValidateChoice(choiceID, selectedBranch string) bool
}

// SketchService — генерация и выдача скетчей панелей.
type SketchService interface {
	Generate(ctx context.Context, prompt, style, mood string, panelID *int) (*models.Sketch, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sketch, error)
}

// ChapterPipeline — админский пайплайн сборки глав.
type ChapterPipeline interface {
	CreateChapter(ctx context.Context, req compiler.CreateChapterRequest) (*compiler.CreateChapterResult, error)
	ChapterStatus(chapterID string) (*compiler.Manifest, error)
}

// Handler обрабатывает HTTP запросы WORTHY сервера.
type Handler struct {
	orchestrator OrchestratorService
	contexts     ContextService
	reader       ReaderService
	sketches     SketchService
	pipeline     ChapterPipeline
	logger       *zap.Logger
}

// NewHandler создает новый Handler.
func NewHandler(
	orchestrator OrchestratorService,
	contexts ContextService,
	reader ReaderService,
	sketches SketchService,
	pipeline ChapterPipeline,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		contexts:     contexts,
		reader:       reader,
		sketches:     sketches,
		pipeline:     pipeline,
		logger:       logger.Named("Handler"),
	}
}

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/health", h.health)

	orchestrator := api.Group("/orchestrator")
	{
		orchestrator.POST("/start-page", h.startPage)
		orchestrator.GET("/page/:pageId/status", h.getPageStatus)
		orchestrator.POST("/page/:pageId/narration", h.updateNarration)
		orchestrator.POST("/page/:pageId/approve-narration", h.approveNarration)
		orchestrator.POST("/page/:pageId/revise-narration", h.reviseNarration)
		orchestrator.POST("/page/:pageId/dialogue", h.updateDialogue)
		orchestrator.POST("/page/:pageId/approve-dialogue", h.approveDialogue)
		orchestrator.GET("/page/:pageId/history", h.getPageHistory)
		orchestrator.GET("/page/:pageId/context", h.getPageContext)
		orchestrator.GET("/chapters", h.listChapterProgress)
		orchestrator.GET("/chapter/:chapterId/pages", h.listChapterPages)
	}

	chapters := api.Group("/chapters")
	{
		chapters.GET("/:chapterId", h.getChapter)
		chapters.POST("/:chapterId/progress", h.saveProgress)
	}

	choices := api.Group("/choices")
	{
		choices.POST("/generate-continuation", h.generateContinuation)
		choices.POST("/validate", h.validateChoice)
	}

	sketches := api.Group("/sketches")
	{
		sketches.POST("/generate", h.generateSketch)
		sketches.GET("/:sketchId", h.getSketch)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/chapters/create", h.createChapter)
		admin.GET("/chapters/:id/status", h.chapterStatus)
	}
}
