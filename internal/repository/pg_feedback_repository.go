package repository

import (
	"context"
	"fmt"

	"worthy-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	insertFeedbackQuery = `
        INSERT INTO user_feedback (id, page_id, revision_id, feedback_text, feedback_type, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
    `
	listFeedbackByPageQuery = `
        SELECT id, page_id, revision_id, feedback_text, feedback_type, created_at
        FROM user_feedback
        WHERE page_id = $1
        ORDER BY created_at DESC
    `
	listFeedbackTextsQuery = `
        SELECT feedback_text
        FROM user_feedback
        WHERE page_id = $1 AND feedback_type = $2
        ORDER BY created_at DESC
    `
)

var _ FeedbackRepository = (*pgFeedbackRepository)(nil)

type pgFeedbackRepository struct {
	logger *zap.Logger
}

// NewPgFeedbackRepository создает новый репозиторий пользовательского фидбека.
func NewPgFeedbackRepository(logger *zap.Logger) FeedbackRepository {
	return &pgFeedbackRepository{
		logger: logger.Named("PgFeedbackRepo"),
	}
}

func (r *pgFeedbackRepository) Insert(ctx context.Context, querier DBTX, feedback *models.UserFeedback) error {
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	_, err := querier.Exec(ctx, insertFeedbackQuery,
		feedback.ID, feedback.PageID, feedback.RevisionID, feedback.FeedbackText, feedback.FeedbackType,
	)
	if err != nil {
		r.logger.Error("Failed to insert user feedback",
			zap.String("pageID", feedback.PageID.String()), zap.Error(err))
		return fmt.Errorf("ошибка записи фидбека страницы %s: %w", feedback.PageID, err)
	}
	return nil
}

func (r *pgFeedbackRepository) ListByPage(ctx context.Context, querier DBTX, pageID uuid.UUID) ([]models.UserFeedback, error) {
	feedback := make([]models.UserFeedback, 0)
	if err := pgxscan.Select(ctx, querier, &feedback, listFeedbackByPageQuery, pageID); err != nil {
		r.logger.Error("Failed to list user feedback", zap.String("pageID", pageID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки фидбека страницы %s: %w", pageID, err)
	}
	return feedback, nil
}

func (r *pgFeedbackRepository) ListTexts(ctx context.Context, querier DBTX, pageID uuid.UUID, kind models.FeedbackKind) ([]string, error) {
	texts := make([]string, 0)
	if err := pgxscan.Select(ctx, querier, &texts, listFeedbackTextsQuery, pageID, kind); err != nil {
		r.logger.Error("Failed to list feedback texts",
			zap.String("pageID", pageID.String()), zap.String("feedbackType", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки текстов фидбека страницы %s: %w", pageID, err)
	}
	return texts, nil
}
