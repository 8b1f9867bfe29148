package service

import (
	"context"
	"fmt"
	"strings"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ContextService собирает материал для агента: канонические референсы,
// предыдущие одобренные страницы и метаданные главы — и рендерит их в
// единый текстовый блок промпта. Своего состояния у сервиса нет.
//
// Ошибки чтения не глотаются: пустой набор референсов и недоступная база —
// разные ситуации, и вызывающий решает, что с этим делать.
type ContextService struct {
	db           repository.DBTX
	refRepo      repository.CanonicalRefRepository
	pageRepo     repository.PageRepository
	chapterRepo  repository.ChapterRepository
	feedbackRepo repository.FeedbackRepository
	logger       *zap.Logger
}

// NewContextService создает новый сборщик контекста.
func NewContextService(
	db repository.DBTX,
	refRepo repository.CanonicalRefRepository,
	pageRepo repository.PageRepository,
	chapterRepo repository.ChapterRepository,
	feedbackRepo repository.FeedbackRepository,
	logger *zap.Logger,
) *ContextService {
	return &ContextService{
		db:           db,
		refRepo:      refRepo,
		pageRepo:     pageRepo,
		chapterRepo:  chapterRepo,
		feedbackRepo: feedbackRepo,
		logger:       logger.Named("ContextService"),
	}
}

// LoadCanonicalRefs возвращает активные референсы по возрастанию ref_type.
func (s *ContextService) LoadCanonicalRefs(ctx context.Context) ([]models.CanonicalReference, error) {
	return s.refRepo.ListActive(ctx)
}

// LoadPriorPages возвращает одобренные страницы главы с номером строго
// меньше beforePageNumber.
func (s *ContextService) LoadPriorPages(ctx context.Context, chapterID string, beforePageNumber int) ([]models.PriorPage, error) {
	return s.pageRepo.ListPriorApproved(ctx, s.db, chapterID, beforePageNumber)
}

// GetChapterMetadata возвращает метаданные главы.
func (s *ContextService) GetChapterMetadata(ctx context.Context, chapterID string) (*models.ChapterMetadata, error) {
	return s.chapterRepo.GetMetadata(ctx, chapterID)
}

// BuildContext выполняет три независимых чтения параллельно и собирает
// контекст агента. Отсутствующая глава — ErrChapterNotFound.
func (s *ContextService) BuildContext(ctx context.Context, chapterID string, pageNumber int, userInput string) (*models.AgentContext, error) {
	agentCtx := &models.AgentContext{
		CurrentPage: models.CurrentPageInfo{
			PageNumber: pageNumber,
			UserInput:  userInput,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refs, err := s.refRepo.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("ошибка загрузки референсов: %w", err)
		}
		agentCtx.CanonicalRefs = refs
		return nil
	})
	g.Go(func() error {
		pages, err := s.pageRepo.ListPriorApproved(gctx, s.db, chapterID, pageNumber)
		if err != nil {
			return fmt.Errorf("ошибка загрузки предыдущих страниц: %w", err)
		}
		agentCtx.PriorPages = pages
		return nil
	})
	g.Go(func() error {
		metadata, err := s.chapterRepo.GetMetadata(gctx, chapterID)
		if err != nil {
			return err
		}
		agentCtx.ChapterMetadata = *metadata
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build agent context",
			zap.String("chapterID", chapterID), zap.Int("pageNumber", pageNumber), zap.Error(err))
		return nil, err
	}
	return agentCtx, nil
}

// GetPageFeedback возвращает тексты revision_request фидбека страницы,
// новые первыми.
func (s *ContextService) GetPageFeedback(ctx context.Context, pageID uuid.UUID) ([]string, error) {
	return s.feedbackRepo.ListTexts(ctx, s.db, pageID, models.FeedbackRevisionRequest)
}

// FormatContextForPrompt рендерит контекст в детерминированный текстовый
// блок. Порядок секций фиксирован; секция референсов выводится даже пустой.
func (s *ContextService) FormatContextForPrompt(agentCtx *models.AgentContext) string {
	var b strings.Builder

	b.WriteString("# CANONICAL REFERENCES\n\n")
	for _, ref := range agentCtx.CanonicalRefs {
		fmt.Fprintf(&b, "## %s (%s)\n\n", ref.Title, ref.RefType)
		fmt.Fprintf(&b, "%s\n\n", ref.Content)
		b.WriteString("---\n\n")
	}

	if len(agentCtx.PriorPages) > 0 {
		b.WriteString("# PRIOR PAGES (THIS CHAPTER)\n\n")
		for _, page := range agentCtx.PriorPages {
			fmt.Fprintf(&b, "## Page %d\n\n", page.PageNumber)
			fmt.Fprintf(&b, "%s\n\n", page.NarrationText)
			if len(page.Dialogue) > 0 {
				b.WriteString("**Dialogue:**\n")
				for _, line := range page.Dialogue {
					fmt.Fprintf(&b, "- %s: %q\n", line.Speaker, line.Text)
				}
				b.WriteString("\n")
			}
			b.WriteString("---\n\n")
		}
	} else {
		b.WriteString("# PRIOR PAGES\n\n")
		b.WriteString("This is the first page of the chapter.\n\n")
		b.WriteString("---\n\n")
	}

	b.WriteString("# CURRENT PAGE\n\n")
	fmt.Fprintf(&b, "**Page Number:** %d\n", agentCtx.CurrentPage.PageNumber)
	fmt.Fprintf(&b, "**User Input:** %s\n\n", agentCtx.CurrentPage.UserInput)

	return b.String()
}
