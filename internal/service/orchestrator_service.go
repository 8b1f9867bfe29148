package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worthy-server/internal/messaging"
	"worthy-server/internal/models"
	"worthy-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TransitionResult — результат мутирующей операции state machine.
type TransitionResult struct {
	PageID   uuid.UUID                `json:"pageId"`
	NewState models.OrchestratorState `json:"newState"`
	Version  int                      `json:"version,omitempty"`
}

// PageHistory — все ревизии и весь фидбек страницы, новые первыми.
type PageHistory struct {
	Revisions []models.PageRevision `json:"revisions"`
	Feedback  []models.UserFeedback `json:"feedback"`
}

// OrchestratorService владеет жизненным циклом авторинга страницы:
// ввод пользователя → генерация наррации → ревью → цикл ревизий →
// генерация диалога → ревью → одобрение.
//
// Каждая мутирующая операция выполняет все свои записи (контент, ревизия,
// смена статуса, аудит перехода) в одной транзакции. Задачи генерации
// публикуются после коммита; ошибка публикации не откатывает переход —
// агент всегда может быть запущен вручную через HTTP.
type OrchestratorService struct {
	db             repository.DBTX
	txManager      repository.TxManager
	pageRepo       repository.PageRepository
	revisionRepo   repository.RevisionRepository
	feedbackRepo   repository.FeedbackRepository
	transitionRepo repository.TransitionRepository
	chapterRepo    repository.ChapterRepository
	publisher      messaging.TaskPublisher
	logger         *zap.Logger
}

// NewOrchestratorService создает новый сервис state machine страниц.
func NewOrchestratorService(
	db repository.DBTX,
	txManager repository.TxManager,
	pageRepo repository.PageRepository,
	revisionRepo repository.RevisionRepository,
	feedbackRepo repository.FeedbackRepository,
	transitionRepo repository.TransitionRepository,
	chapterRepo repository.ChapterRepository,
	publisher messaging.TaskPublisher,
	logger *zap.Logger,
) *OrchestratorService {
	return &OrchestratorService{
		db:             db,
		txManager:      txManager,
		pageRepo:       pageRepo,
		revisionRepo:   revisionRepo,
		feedbackRepo:   feedbackRepo,
		transitionRepo: transitionRepo,
		chapterRepo:    chapterRepo,
		publisher:      publisher,
		logger:         logger.Named("OrchestratorService"),
	}
}

// StartPage создает страницу со следующим номером в главе и сразу выполняет
// первый переход в generating_narration.
func (s *OrchestratorService) StartPage(ctx context.Context, chapterID, userInput string) (*models.StoryPage, error) {
	log := s.logger.With(zap.String("chapterID", chapterID))

	if _, err := s.chapterRepo.GetMetadata(ctx, chapterID); err != nil {
		if errors.Is(err, models.ErrChapterNotFound) {
			return nil, models.ErrChapterNotFound
		}
		return nil, fmt.Errorf("ошибка проверки главы %s: %w", chapterID, err)
	}

	var page *models.StoryPage
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		var err error
		page, err = s.pageRepo.Create(ctx, tx, chapterID, userInput, models.StateGeneratingNarration)
		if err != nil {
			return err
		}
		return s.transitionRepo.Insert(ctx, tx, &models.StateTransition{
			PageID:    page.ID,
			FromState: models.StateAwaitingUserInput,
			ToState:   models.StateGeneratingNarration,
		})
	})
	if err != nil {
		log.Error("Failed to start page", zap.Error(err))
		return nil, err
	}

	log.Info("Page started",
		zap.String("pageID", page.ID.String()), zap.Int("pageNumber", page.PageNumber))

	s.publishTask(ctx, messaging.GenerationTaskPayload{
		TaskID:    uuid.New(),
		PageID:    page.ID,
		ChapterID: chapterID,
		TaskType:  messaging.TaskTypeNarration,
	})
	return page, nil
}

// UpdateNarration перезаписывает наррацию, пишет ревизию и переводит
// страницу на ревью. Инкремент версии выполняется в SQL, поэтому
// конкурентные обновления не могут получить одинаковый номер.
func (s *OrchestratorService) UpdateNarration(ctx context.Context, pageID uuid.UUID, narrationText string, meta *models.AgentMetadata) (*TransitionResult, error) {
	log := s.logger.With(zap.String("pageID", pageID.String()))

	var version int
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}

		version, err = s.pageRepo.UpdateNarration(ctx, tx, pageID, narrationText)
		if err != nil {
			return err
		}

		revision := &models.PageRevision{
			PageID:        pageID,
			RevisionType:  models.RevisionNarration,
			VersionNumber: version,
			Content:       narrationText,
		}
		applyAgentMetadata(revision, meta)
		if err := s.revisionRepo.Insert(ctx, tx, revision); err != nil {
			return err
		}

		return s.transition(ctx, tx, page, models.StateUserReviewingNarration, nil)
	})
	if err != nil {
		log.Error("Failed to update narration", zap.Error(err))
		return nil, err
	}

	log.Info("Narration updated", zap.Int("version", version))
	return &TransitionResult{PageID: pageID, NewState: models.StateUserReviewingNarration, Version: version}, nil
}

// ApproveNarration переводит страницу с ревью наррации на генерацию диалога.
// Требует состояния user_reviewing_narration.
func (s *OrchestratorService) ApproveNarration(ctx context.Context, pageID uuid.UUID) (*TransitionResult, error) {
	log := s.logger.With(zap.String("pageID", pageID.String()))

	var chapterID string
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if page.Status != models.StateUserReviewingNarration {
			return fmt.Errorf("approve narration в состоянии %s: %w", page.Status, models.ErrInvalidState)
		}
		chapterID = page.ChapterID
		return s.transition(ctx, tx, page, models.StateGeneratingDialogue, nil)
	})
	if err != nil {
		log.Warn("Failed to approve narration", zap.Error(err))
		return nil, err
	}

	log.Info("Narration approved, generating dialogue")
	s.publishTask(ctx, messaging.GenerationTaskPayload{
		TaskID:    uuid.New(),
		PageID:    pageID,
		ChapterID: chapterID,
		TaskType:  messaging.TaskTypeDialogue,
	})
	return &TransitionResult{PageID: pageID, NewState: models.StateGeneratingDialogue}, nil
}

// RequestNarrationRevision сохраняет фидбек, привязанный к последней ревизии
// наррации, и возвращает страницу на повторную генерацию.
func (s *OrchestratorService) RequestNarrationRevision(ctx context.Context, pageID uuid.UUID, feedbackText string) (*TransitionResult, error) {
	log := s.logger.With(zap.String("pageID", pageID.String()))

	var chapterID string
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}
		chapterID = page.ChapterID

		latest, err := s.revisionRepo.LatestByKind(ctx, tx, pageID, models.RevisionNarration)
		if err != nil {
			return err
		}

		feedback := &models.UserFeedback{
			PageID:       pageID,
			RevisionID:   &latest.ID,
			FeedbackText: feedbackText,
			FeedbackType: models.FeedbackRevisionRequest,
		}
		if err := s.feedbackRepo.Insert(ctx, tx, feedback); err != nil {
			return err
		}

		stateData, err := json.Marshal(models.RevisionRequestData{
			RevisionRequested: true,
			UserFeedback:      feedbackText,
		})
		if err != nil {
			return fmt.Errorf("ошибка сериализации side-data перехода: %w", err)
		}
		return s.transition(ctx, tx, page, models.StateGeneratingNarration, stateData)
	})
	if err != nil {
		log.Warn("Failed to request narration revision", zap.Error(err))
		return nil, err
	}

	log.Info("Narration revision requested")
	s.publishTask(ctx, messaging.GenerationTaskPayload{
		TaskID:    uuid.New(),
		PageID:    pageID,
		ChapterID: chapterID,
		TaskType:  messaging.TaskTypeNarration,
		Feedback:  feedbackText,
	})
	return &TransitionResult{PageID: pageID, NewState: models.StateGeneratingNarration}, nil
}

// UpdateDialogue перезаписывает диалог, пишет ревизию и переводит страницу
// на ревью диалога.
func (s *OrchestratorService) UpdateDialogue(ctx context.Context, pageID uuid.UUID, dialogue []models.DialogueLine, meta *models.AgentMetadata) (*TransitionResult, error) {
	log := s.logger.With(zap.String("pageID", pageID.String()))

	if len(dialogue) == 0 {
		return nil, fmt.Errorf("пустой диалог: %w", models.ErrInvalidInput)
	}

	content, err := json.Marshal(dialogue)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации диалога: %w", err)
	}

	var version int
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}

		version, err = s.pageRepo.UpdateDialogue(ctx, tx, pageID, dialogue)
		if err != nil {
			return err
		}

		revision := &models.PageRevision{
			PageID:        pageID,
			RevisionType:  models.RevisionDialogue,
			VersionNumber: version,
			Content:       string(content),
		}
		applyAgentMetadata(revision, meta)
		if err := s.revisionRepo.Insert(ctx, tx, revision); err != nil {
			return err
		}

		return s.transition(ctx, tx, page, models.StateUserReviewingDialogue, nil)
	})
	if err != nil {
		log.Error("Failed to update dialogue", zap.Error(err))
		return nil, err
	}

	log.Info("Dialogue updated", zap.Int("version", version))
	return &TransitionResult{PageID: pageID, NewState: models.StateUserReviewingDialogue, Version: version}, nil
}

// ApproveDialogue переводит страницу в терминальное page_approved и ставит
// approved_at. Повторный вызов допустим и ничего не меняет.
func (s *OrchestratorService) ApproveDialogue(ctx context.Context, pageID uuid.UUID) (*TransitionResult, error) {
	log := s.logger.With(zap.String("pageID", pageID.String()))

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}
		if page.Status == models.StatePageApproved {
			// Идемпотентность: страница уже одобрена.
			return nil
		}

		if err := s.transition(ctx, tx, page, models.StatePageApproved, nil); err != nil {
			return err
		}
		return s.pageRepo.SetApprovedAt(ctx, tx, pageID, time.Now().UTC())
	})
	if err != nil {
		log.Error("Failed to approve dialogue", zap.Error(err))
		return nil, err
	}

	log.Info("Page approved")
	return &TransitionResult{PageID: pageID, NewState: models.StatePageApproved}, nil
}

// MarkPageError переводит страницу в состояние error с причиной в side-data
// перехода. Вызывается воркером при исчерпании retry-бюджета генерации.
func (s *OrchestratorService) MarkPageError(ctx context.Context, pageID uuid.UUID, reason string) error {
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		page, err := s.pageRepo.GetByID(ctx, tx, pageID)
		if err != nil {
			return err
		}
		stateData, err := json.Marshal(map[string]string{"error": reason})
		if err != nil {
			return fmt.Errorf("ошибка сериализации side-data перехода: %w", err)
		}
		return s.transition(ctx, tx, page, models.StateError, stateData)
	})
	if err != nil {
		s.logger.Error("Failed to mark page as errored",
			zap.String("pageID", pageID.String()), zap.Error(err))
		return err
	}
	s.logger.Warn("Page marked as errored",
		zap.String("pageID", pageID.String()), zap.String("reason", reason))
	return nil
}

// GetPageContext возвращает снапшот полей страницы.
func (s *OrchestratorService) GetPageContext(ctx context.Context, pageID uuid.UUID) (*models.StoryPage, error) {
	return s.pageRepo.GetByID(ctx, s.db, pageID)
}

// GetPageHistory возвращает все ревизии и весь фидбек страницы, новые
// первыми. Чтения независимы и выполняются параллельно.
func (s *OrchestratorService) GetPageHistory(ctx context.Context, pageID uuid.UUID) (*PageHistory, error) {
	history := &PageHistory{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		revisions, err := s.revisionRepo.ListByPage(gctx, s.db, pageID)
		if err != nil {
			return err
		}
		history.Revisions = revisions
		return nil
	})
	g.Go(func() error {
		feedback, err := s.feedbackRepo.ListByPage(gctx, s.db, pageID)
		if err != nil {
			return err
		}
		history.Feedback = feedback
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to get page history", zap.String("pageID", pageID.String()), zap.Error(err))
		return nil, err
	}
	return history, nil
}

// ListChapterProgress возвращает сводку прогресса авторинга по всем главам.
func (s *OrchestratorService) ListChapterProgress(ctx context.Context) ([]models.ChapterProgress, error) {
	return s.chapterRepo.ListProgress(ctx)
}

// ListChapterPages возвращает сводки статусов страниц главы.
func (s *OrchestratorService) ListChapterPages(ctx context.Context, chapterID string) ([]models.PageStatusSummary, error) {
	if _, err := s.chapterRepo.GetMetadata(ctx, chapterID); err != nil {
		return nil, err
	}
	return s.pageRepo.ListByChapter(ctx, s.db, chapterID)
}

// transition меняет статус страницы и пишет строку аудита в одной транзакции.
func (s *OrchestratorService) transition(ctx context.Context, tx repository.DBTX, page *models.StoryPage, to models.OrchestratorState, stateData json.RawMessage) error {
	if err := s.pageRepo.UpdateStatus(ctx, tx, page.ID, to); err != nil {
		return err
	}
	return s.transitionRepo.Insert(ctx, tx, &models.StateTransition{
		PageID:    page.ID,
		FromState: page.Status,
		ToState:   to,
		StateData: stateData,
	})
}

// publishTask публикует задачу генерации. Ошибка публикации не фатальна.
func (s *OrchestratorService) publishTask(ctx context.Context, payload messaging.GenerationTaskPayload) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGenerationTask(ctx, payload); err != nil {
		s.logger.Error("Failed to publish generation task",
			zap.String("pageID", payload.PageID.String()),
			zap.String("taskType", payload.TaskType),
			zap.Error(err))
	}
}

func applyAgentMetadata(revision *models.PageRevision, meta *models.AgentMetadata) {
	if meta == nil {
		return
	}
	revision.AgentPrompt = meta.Prompt
	revision.AgentModel = meta.Model
	revision.AgentTokensUsed = meta.TokensUsed
}
