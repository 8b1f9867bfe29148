package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"worthy-server/internal/messaging"
	"worthy-server/internal/models"
	"worthy-server/internal/service"
	"worthy-server/pkg/ai"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Системные промпты генерации. Канон, предыдущие страницы и ввод
// пользователя приходят отдельным блоком из сборщика контекста.
const (
	narrationSystemPrompt = `You are the narration agent for "Reversion Ladder / WORTHY," an interactive manhua/webtoon.
Write prose narration for the current page using the provided canonical references and prior pages.
Tone is grim tension with subtle nervous humor (never grimdark, never comedy).
No exposition dumps: weave lore as environmental detail and fragments only.
Respond with the narration text only, no headers or commentary.`

	dialogueSystemPrompt = `You are the dialogue agent for "Reversion Ladder / WORTHY," an interactive manhua/webtoon.
Write the dialogue for the current page based on its narration and the provided canonical references.
Keep each line punchy, under 18 words, with distinct character voices.
REQUIRED OUTPUT FORMAT: a valid JSON array (no markdown, no code blocks, just raw JSON):
[{"speaker": "MC", "text": "Line here."}]`
)

// PageOrchestrator — операции state machine, которые нужны воркеру.
type PageOrchestrator interface {
	GetPageContext(ctx context.Context, pageID uuid.UUID) (*models.StoryPage, error)
	UpdateNarration(ctx context.Context, pageID uuid.UUID, narrationText string, meta *models.AgentMetadata) (*service.TransitionResult, error)
	UpdateDialogue(ctx context.Context, pageID uuid.UUID, dialogue []models.DialogueLine, meta *models.AgentMetadata) (*service.TransitionResult, error)
	MarkPageError(ctx context.Context, pageID uuid.UUID, reason string) error
}

// ContextAssembler — операции сборщика контекста, которые нужны воркеру.
type ContextAssembler interface {
	BuildContext(ctx context.Context, chapterID string, pageNumber int, userInput string) (*models.AgentContext, error)
	FormatContextForPrompt(agentCtx *models.AgentContext) string
	GetPageFeedback(ctx context.Context, pageID uuid.UUID) ([]string, error)
}

// Handler выполняет задачи генерации: собирает контекст агента, вызывает
// нейросеть и прогоняет результат через те же операции state machine, что
// использует внешний агент по HTTP.
type Handler struct {
	orchestrator PageOrchestrator
	assembler    ContextAssembler
	aiClient     service.AIGenerator
	logger       *zap.Logger
}

// NewHandler создает новый обработчик задач генерации.
func NewHandler(orchestrator PageOrchestrator, assembler ContextAssembler, aiClient service.AIGenerator, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		assembler:    assembler,
		aiClient:     aiClient,
		logger:       logger.Named("GenerationWorker"),
	}
}

// HandleTask обрабатывает одну задачу. При исчерпании retry-бюджета
// страница переводится в состояние error с причиной.
func (h *Handler) HandleTask(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	start := time.Now()
	log := h.logger.With(
		zap.String("taskID", payload.TaskID.String()),
		zap.String("pageID", payload.PageID.String()),
		zap.String("taskType", payload.TaskType),
	)

	err := h.process(ctx, payload, log)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		if markErr := h.orchestrator.MarkPageError(ctx, payload.PageID, err.Error()); markErr != nil {
			log.Error("Failed to record page error state", zap.Error(markErr))
		}
	}
	tasksProcessed.WithLabelValues(payload.TaskType, outcome).Inc()
	taskDuration.WithLabelValues(payload.TaskType).Observe(time.Since(start).Seconds())
	return err
}

func (h *Handler) process(ctx context.Context, payload messaging.GenerationTaskPayload, log *zap.Logger) error {
	page, err := h.orchestrator.GetPageContext(ctx, payload.PageID)
	if err != nil {
		return fmt.Errorf("ошибка загрузки страницы: %w", err)
	}

	agentCtx, err := h.assembler.BuildContext(ctx, page.ChapterID, page.PageNumber, page.UserInput)
	if err != nil {
		return fmt.Errorf("ошибка сборки контекста: %w", err)
	}
	userPrompt := h.assembler.FormatContextForPrompt(agentCtx)

	switch payload.TaskType {
	case messaging.TaskTypeNarration:
		return h.generateNarration(ctx, payload, page, userPrompt, log)
	case messaging.TaskTypeDialogue:
		return h.generateDialogue(ctx, payload, page, userPrompt, log)
	default:
		return fmt.Errorf("неизвестный тип задачи генерации: %s", payload.TaskType)
	}
}

func (h *Handler) generateNarration(ctx context.Context, payload messaging.GenerationTaskPayload, page *models.StoryPage, userPrompt string, log *zap.Logger) error {
	// При регенерации по ревизии агент видит весь накопленный фидбек,
	// новый первым.
	if payload.Feedback != "" {
		feedback, err := h.assembler.GetPageFeedback(ctx, payload.PageID)
		if err != nil {
			return fmt.Errorf("ошибка загрузки фидбека: %w", err)
		}
		userPrompt += formatFeedbackSection(feedback)
	}

	result, err := h.aiClient.Generate(ctx, narrationSystemPrompt, userPrompt, ai.Options{
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return fmt.Errorf("ошибка генерации наррации: %w", err)
	}
	tokensUsed.WithLabelValues(payload.TaskType).Add(float64(result.TokensUsed))

	meta := &models.AgentMetadata{
		Prompt:     &userPrompt,
		Model:      &result.Model,
		TokensUsed: &result.TokensUsed,
	}
	transition, err := h.orchestrator.UpdateNarration(ctx, payload.PageID, result.Content, meta)
	if err != nil {
		return fmt.Errorf("ошибка записи наррации: %w", err)
	}
	log.Info("Narration generated", zap.Int("version", transition.Version), zap.Int("tokens", result.TokensUsed))
	return nil
}

func (h *Handler) generateDialogue(ctx context.Context, payload messaging.GenerationTaskPayload, page *models.StoryPage, userPrompt string, log *zap.Logger) error {
	if page.NarrationText != nil {
		userPrompt += fmt.Sprintf("\n# APPROVED NARRATION\n\n%s\n", *page.NarrationText)
	}

	result, err := h.aiClient.Generate(ctx, dialogueSystemPrompt, userPrompt, ai.Options{
		Temperature: 0.8,
		MaxTokens:   1500,
		RequireJSON: true,
	})
	if err != nil {
		return fmt.Errorf("ошибка генерации диалога: %w", err)
	}
	tokensUsed.WithLabelValues(payload.TaskType).Add(float64(result.TokensUsed))

	var dialogue []models.DialogueLine
	if err := json.Unmarshal([]byte(result.Content), &dialogue); err != nil {
		return fmt.Errorf("ответ диалогового агента не является массивом реплик: %w", err)
	}
	if len(dialogue) == 0 {
		return fmt.Errorf("диалоговый агент вернул пустой массив реплик")
	}

	meta := &models.AgentMetadata{
		Prompt:     &userPrompt,
		Model:      &result.Model,
		TokensUsed: &result.TokensUsed,
	}
	transition, err := h.orchestrator.UpdateDialogue(ctx, payload.PageID, dialogue, meta)
	if err != nil {
		return fmt.Errorf("ошибка записи диалога: %w", err)
	}
	log.Info("Dialogue generated",
		zap.Int("version", transition.Version), zap.Int("lines", len(dialogue)), zap.Int("tokens", result.TokensUsed))
	return nil
}

func formatFeedbackSection(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n# REVISION FEEDBACK (NEWEST FIRST)\n\n")
	for _, text := range feedback {
		fmt.Fprintf(&b, "- %s\n", text)
	}
	return b.String()
}
