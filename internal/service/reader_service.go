package service

import (
	"context"
	"encoding/json"
	"fmt"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"
	"worthy-server/pkg/ai"

	"go.uber.org/zap"
)

// AIGenerator — подмножество клиента нейросети, которое нужно сервисам.
type AIGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts ai.Options) (*ai.Result, error)
	ModelName() string
}

// ChoiceContext — сцена, в которой читатель сделал выбор.
type ChoiceContext struct {
	CurrentPanel     int    `json:"currentPanel"`
	MCVoice          string `json:"mcVoice"`
	SceneDescription string `json:"sceneDescription"`
}

// ContinuationPanel — один сгенерированный панель-блок продолжения.
type ContinuationPanel struct {
	PanelID   int    `json:"panelId"`
	Narration string `json:"narration"`
}

// Continuation — продолжение истории после выбора читателя.
type Continuation struct {
	ChoiceID   string              `json:"choiceId"`
	NextPanels []ContinuationPanel `json:"nextPanels"`
}

// ReaderService обслуживает читательскую сторону: выдача глав, сохранение
// прогресса и генерация продолжения после выбора.
type ReaderService struct {
	chapterRepo  repository.ChapterRepository
	progressRepo repository.ReaderProgressRepository
	aiClient     AIGenerator
	logger       *zap.Logger
}

// NewReaderService создает новый сервис ридера.
func NewReaderService(
	chapterRepo repository.ChapterRepository,
	progressRepo repository.ReaderProgressRepository,
	aiClient AIGenerator,
	logger *zap.Logger,
) *ReaderService {
	return &ReaderService{
		chapterRepo:  chapterRepo,
		progressRepo: progressRepo,
		aiClient:     aiClient,
		logger:       logger.Named("ReaderService"),
	}
}

// GetChapter возвращает главу для ридера.
func (s *ReaderService) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	return s.chapterRepo.GetByID(ctx, chapterID)
}

// SaveProgress сохраняет позицию читателя в главе вместе с путем выборов.
func (s *ReaderService) SaveProgress(ctx context.Context, chapterID, userID string, panelIndex int, choicesPath json.RawMessage) error {
	if _, err := s.chapterRepo.GetMetadata(ctx, chapterID); err != nil {
		return err
	}
	return s.progressRepo.Upsert(ctx, &models.ReaderProgress{
		UserID:      userID,
		ChapterID:   chapterID,
		PanelIndex:  panelIndex,
		ChoicesPath: choicesPath,
	})
}

// GenerateContinuation строит промпт продолжения из контекста выбора и
// прогоняет его через нейросеть.
func (s *ReaderService) GenerateContinuation(ctx context.Context, choiceID, selectedBranch string, choiceCtx ChoiceContext) (*Continuation, error) {
	log := s.logger.With(zap.String("choiceID", choiceID))

	userPrompt := fmt.Sprintf(`You are writing the next scene of "Reversion Ladder," an interactive manhua/webtoon.
MC (the protagonist) just made this choice: %q
Current scene: %s
MC's voice: %s

Write 2-3 paragraphs of narrative description for the next panel(s).
Keep tone consistent with the MC's voice. Use rich visual language for a manhua format.
Include at least one detail about essence/energy, spirit pressure, or Will manifestation.`,
		selectedBranch, choiceCtx.SceneDescription, choiceCtx.MCVoice)

	result, err := s.aiClient.Generate(ctx, "You are a webtoon narrative writer.", userPrompt, ai.Options{
		Temperature: 0.8,
		MaxTokens:   1500,
	})
	if err != nil {
		log.Error("Failed to generate continuation", zap.Error(err))
		return nil, fmt.Errorf("ошибка генерации продолжения для выбора %s: %w", choiceID, err)
	}

	log.Info("Continuation generated", zap.Int("tokens", result.TokensUsed))
	return &Continuation{
		ChoiceID: choiceID,
		NextPanels: []ContinuationPanel{
			{
				PanelID:   choiceCtx.CurrentPanel + 1,
				Narration: result.Content,
			},
		},
	}, nil
}

// ValidateChoice проверяет, что заявка на выбор заполнена.
func (s *ReaderService) ValidateChoice(choiceID, selectedBranch string) bool {
	return choiceID != "" && selectedBranch != ""
}
