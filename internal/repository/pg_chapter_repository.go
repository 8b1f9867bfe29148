package repository

import (
	"context"
	"errors"
	"fmt"

	"worthy-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	getChapterByIDQuery = `
        SELECT id, title, description, panels, choice_points, status, created_at, updated_at
        FROM chapters
        WHERE id = $1
    `
	getChapterMetadataQuery = `SELECT id, title, description FROM chapters WHERE id = $1`

	// Агрегат по страницам каждой главы: всего / одобрено / последняя активность.
	listChapterProgressQuery = `
        SELECT c.id AS chapter_id,
               c.title,
               COUNT(p.id) AS total_pages,
               COUNT(p.id) FILTER (WHERE p.status = 'page_approved') AS approved_pages,
               MAX(p.updated_at) AS last_activity
        FROM chapters c
        LEFT JOIN story_pages p ON p.chapter_id = c.id
        GROUP BY c.id, c.title
        ORDER BY MAX(p.updated_at) DESC NULLS LAST, c.id ASC
    `
	upsertChapterQuery = `
        INSERT INTO chapters (id, title, description, panels, choice_points, status, created_at, updated_at)
        VALUES ($1, $2, $3, COALESCE($4, '[]'::jsonb), COALESCE($5, '[]'::jsonb), $6, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            panels = EXCLUDED.panels,
            choice_points = EXCLUDED.choice_points,
            status = EXCLUDED.status,
            updated_at = NOW()
    `
)

var _ ChapterRepository = (*pgChapterRepository)(nil)

type pgChapterRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgChapterRepository создает новый репозиторий глав.
func NewPgChapterRepository(db *pgxpool.Pool, logger *zap.Logger) ChapterRepository {
	return &pgChapterRepository{
		db:     db,
		logger: logger.Named("PgChapterRepo"),
	}
}

func (r *pgChapterRepository) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	chapter := &models.Chapter{}
	err := pgxscan.Get(ctx, r.db, chapter, getChapterByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Chapter not found", zap.String("chapterID", id))
			return nil, models.ErrChapterNotFound
		}
		r.logger.Error("Failed to get chapter", zap.String("chapterID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения главы %s: %w", id, err)
	}
	return chapter, nil
}

func (r *pgChapterRepository) GetMetadata(ctx context.Context, id string) (*models.ChapterMetadata, error) {
	metadata := &models.ChapterMetadata{}
	err := pgxscan.Get(ctx, r.db, metadata, getChapterMetadataQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChapterNotFound
		}
		r.logger.Error("Failed to get chapter metadata", zap.String("chapterID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения метаданных главы %s: %w", id, err)
	}
	return metadata, nil
}

func (r *pgChapterRepository) ListProgress(ctx context.Context) ([]models.ChapterProgress, error) {
	progress := make([]models.ChapterProgress, 0)
	if err := pgxscan.Select(ctx, r.db, &progress, listChapterProgressQuery); err != nil {
		r.logger.Error("Failed to list chapter progress", zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки прогресса глав: %w", err)
	}
	return progress, nil
}

func (r *pgChapterRepository) Upsert(ctx context.Context, chapter *models.Chapter) error {
	_, err := r.db.Exec(ctx, upsertChapterQuery,
		chapter.ID, chapter.Title, chapter.Description, chapter.Panels, chapter.ChoicePoints, chapter.Status,
	)
	if err != nil {
		r.logger.Error("Failed to upsert chapter", zap.String("chapterID", chapter.ID), zap.Error(err))
		return fmt.Errorf("ошибка сохранения главы %s: %w", chapter.ID, err)
	}
	r.logger.Info("Chapter upserted", zap.String("chapterID", chapter.ID), zap.String("status", chapter.Status))
	return nil
}
