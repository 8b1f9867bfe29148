package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"
	"worthy-server/internal/sketch"
	"worthy-server/pkg/ai"

	"go.uber.org/zap"
)

// Generator — клиент генерации текста (pkg/ai.Client).
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts ai.Options) (*ai.Result, error)
}

// ImageClient верифицирует image-URL панелей (internal/sketch.Generator).
type ImageClient interface {
	ImageURL(fullPrompt string) string
	Verify(ctx context.Context, imageURL string) error
}

// CreateChapterResult — итог сборки главы.
type CreateChapterResult struct {
	ChapterID   string           `json:"chapterId"`
	ChapterPath string           `json:"chapterPath"`
	PanelCount  int              `json:"panelCount"`
	StyleID     string           `json:"styleId"`
	Validation  ValidationResult `json:"validation"`
	Images      *ImageStats      `json:"images,omitempty"`
}

// Pipeline собирает главу целиком: план, пять промптов через AI-клиент,
// валидация сценария, запись бандла и регистрация главы в БД.
type Pipeline struct {
	aiClient Generator
	images   ImageClient
	refs     repository.CanonicalRefRepository
	chapters repository.ChapterRepository
	store    *BundleStore
	logger   *zap.Logger
}

// NewPipeline создает пайплайн сборки глав.
func NewPipeline(
	aiClient Generator,
	images ImageClient,
	refs repository.CanonicalRefRepository,
	chapters repository.ChapterRepository,
	store *BundleStore,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		aiClient: aiClient,
		images:   images,
		refs:     refs,
		chapters: chapters,
		store:    store,
		logger:   logger.Named("CompilerPipeline"),
	}
}

// CreateChapter прогоняет полный автоматический пайплайн сборки главы.
func (p *Pipeline) CreateChapter(ctx context.Context, req CreateChapterRequest) (*CreateChapterResult, error) {
	req.Sanitize()
	if req.ID == "" || req.Title == "" || req.Narrative == "" {
		return nil, fmt.Errorf("id, title и narrative обязательны: %w", models.ErrInvalidInput)
	}

	plan := NewChapterPlan(req)
	log := p.logger.With(zap.String("chapterID", plan.ChapterID))
	log.Info("Starting chapter pipeline",
		zap.Int("panelCount", plan.PanelCount),
		zap.String("styleID", plan.StyleID),
		zap.Strings("keyBeats", plan.KeyBeats))

	canon, err := p.loadCanon(ctx)
	if err != nil {
		return nil, err
	}
	prompts := BuildPromptPack(plan, canon)

	// Стадия 1: плот. Черновой сценарий главы.
	plotOut, err := p.runStage(ctx, "plot", plotSystemPrompt, prompts.PlotPrompt, 0.7, true)
	if err != nil {
		return nil, err
	}

	// Стадия 2: скрипт. Валидация и доводка черновика; плот подается как вход.
	scriptInput := prompts.ScriptPrompt + "\n\nDRAFT SCRIPT TO VALIDATE AND REFINE:\n" + plotOut
	scriptOut, err := p.runStage(ctx, "script", scriptSystemPrompt, scriptInput, 0.5, true)
	if err != nil {
		return nil, err
	}

	var script ChapterScript
	if err := json.Unmarshal([]byte(scriptOut), &script); err != nil {
		return nil, fmt.Errorf("ошибка разбора сценария главы: %w", err)
	}
	if script.ChapterID == "" {
		script.ChapterID = plan.ChapterID
	}
	if script.StyleID == "" {
		script.StyleID = plan.StyleID
	}

	validation := ValidateScript(&script)
	for _, warning := range validation.Warnings {
		log.Warn("Script validation warning", zap.String("warning", warning))
	}
	if !validation.Valid {
		return nil, fmt.Errorf("сценарий главы не прошел валидацию: %s: %w",
			strings.Join(validation.Errors, "; "), models.ErrInvalidInput)
	}

	// Стадия 3: диалоги. Markdown с вариантами реплик.
	dialogueInput := prompts.DialoguePrompt + "\n\nSCRIPT TO REVIEW:\n" + scriptOut
	dialogueOut, err := p.runStage(ctx, "dialogue", dialogueSystemPrompt, dialogueInput, 0.8, false)
	if err != nil {
		return nil, err
	}

	// Стадия 4: storyboard. Image-промпты для каждой панели.
	storyboardInput := prompts.StoryboardPrompt + "\n\nPANELS:\n" + scriptOut
	storyboardOut, err := p.runStage(ctx, "storyboard", storyboardSystemPrompt, storyboardInput, 0.6, true)
	if err != nil {
		return nil, err
	}
	var storyboard []StoryboardPrompt
	if err := json.Unmarshal([]byte(storyboardOut), &storyboard); err != nil {
		return nil, fmt.Errorf("ошибка разбора storyboard-промптов: %w", err)
	}

	// Стадия 5: континуитет. Финальный QA-отчет.
	continuityInput := prompts.ContinuityPrompt + "\n\nSCRIPT TO REVIEW:\n" + scriptOut
	continuityOut, err := p.runStage(ctx, "continuity", continuitySystemPrompt, continuityInput, 0.5, false)
	if err != nil {
		return nil, err
	}

	bundle := &ChapterBundle{
		ChapterID:         plan.ChapterID,
		Title:             plan.Title,
		Description:       plan.Description,
		Script:            &script,
		DialogueMD:        dialogueOut,
		StoryboardPrompts: storyboard,
		ContinuityReport:  continuityOut,
	}
	bundlePath, err := p.store.Write(bundle)
	if err != nil {
		return nil, err
	}
	log.Info("Chapter bundle written", zap.String("bundlePath", bundlePath))

	if err := p.registerChapter(ctx, plan, &script); err != nil {
		return nil, err
	}

	result := &CreateChapterResult{
		ChapterID:   plan.ChapterID,
		ChapterPath: bundlePath,
		PanelCount:  len(script.Panels),
		StyleID:     script.StyleID,
		Validation:  validation,
	}

	if !req.SkipImages && p.images != nil {
		stats := p.renderImages(ctx, plan.StyleID, storyboard, log)
		result.Images = stats
		if manifest, mErr := p.store.ReadManifest(plan.ChapterID); mErr == nil {
			manifest.Images = stats
			if wErr := p.store.WriteManifest(plan.ChapterID, manifest); wErr != nil {
				log.Error("Failed to update manifest with image stats", zap.Error(wErr))
			}
		}
	}

	log.Info("Chapter pipeline finished", zap.Int("panelCount", len(script.Panels)))
	return result, nil
}

// ChapterStatus возвращает манифест собранной главы.
func (p *Pipeline) ChapterStatus(chapterID string) (*Manifest, error) {
	sanitized := chapterIDCleaner.ReplaceAllString(strings.ToLower(chapterID), "")
	if sanitized == "" {
		return nil, fmt.Errorf("пустой идентификатор главы: %w", models.ErrInvalidInput)
	}
	return p.store.ReadManifest(sanitized)
}

// loadCanon собирает текст активных канонических референсов в единый
// мастер-референс для промптов пайплайна.
func (p *Pipeline) loadCanon(ctx context.Context) (string, error) {
	refs, err := p.refs.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки канонических референсов: %w", err)
	}
	if len(refs) == 0 {
		return "(no canonical references registered)", nil
	}

	var b strings.Builder
	for _, ref := range refs {
		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", ref.Title, ref.RefType, ref.Content)
	}
	return b.String(), nil
}

func (p *Pipeline) runStage(ctx context.Context, stage, systemPrompt, userPrompt string, temperature float32, requireJSON bool) (string, error) {
	started := time.Now()
	result, err := p.aiClient.Generate(ctx, systemPrompt, userPrompt, ai.Options{
		Temperature: temperature,
		RequireJSON: requireJSON,
	})
	if err != nil {
		return "", fmt.Errorf("ошибка стадии %s: %w", stage, err)
	}
	p.logger.Info("Pipeline stage completed",
		zap.String("stage", stage),
		zap.Int("tokensUsed", result.TokensUsed),
		zap.Duration("duration", time.Since(started)))
	return result.Content, nil
}

// registerChapter сохраняет собранную главу в БД, чтобы ридер видел ее сразу.
func (p *Pipeline) registerChapter(ctx context.Context, plan ChapterPlan, script *ChapterScript) error {
	panels, err := json.Marshal(script.Panels)
	if err != nil {
		return fmt.Errorf("ошибка сериализации панелей: %w", err)
	}
	choicePoints, err := json.Marshal(script.ChoicePoints)
	if err != nil {
		return fmt.Errorf("ошибка сериализации точек выбора: %w", err)
	}

	chapter := &models.Chapter{
		ID:           plan.ChapterID,
		Title:        plan.Title,
		Description:  plan.Description,
		Panels:       panels,
		ChoicePoints: choicePoints,
		Status:       "ready",
	}
	if err := p.chapters.Upsert(ctx, chapter); err != nil {
		return fmt.Errorf("ошибка регистрации главы %s: %w", plan.ChapterID, err)
	}
	return nil
}

// renderImages прогревает изображения панелей через Pollinations.
// Ошибки отдельных панелей не фатальны, итог пишется в манифест.
func (p *Pipeline) renderImages(ctx context.Context, styleID string, storyboard []StoryboardPrompt, log *zap.Logger) *ImageStats {
	style, ok := StyleByID(styleID)
	if !ok {
		style, _ = StyleByID(DefaultStyleID)
	}

	stats := &ImageStats{TotalPanels: len(storyboard)}
	for _, sb := range storyboard {
		fullPrompt := sketch.BuildPrompt(sb.Prompt, style.PromptPrefix, "")
		imageURL := p.images.ImageURL(fullPrompt)
		if err := p.images.Verify(ctx, imageURL); err != nil {
			log.Warn("Panel image verification failed",
				zap.Int("panelID", sb.PanelID),
				zap.Error(err))
			continue
		}
		stats.Succeeded++
	}
	log.Info("Image batch finished",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("totalPanels", stats.TotalPanels))
	return stats
}
