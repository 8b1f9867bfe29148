package repository

import (
	"context"
	"fmt"

	"worthy-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Одна строка на пару (пользователь, глава): повторный save перезаписывает позицию.
const upsertReaderProgressQuery = `
    INSERT INTO reader_progress (id, user_id, chapter_id, panel_index, choices_path, updated_at)
    VALUES ($1, $2, $3, $4, $5, NOW())
    ON CONFLICT (user_id, chapter_id) DO UPDATE SET
        panel_index = EXCLUDED.panel_index,
        choices_path = EXCLUDED.choices_path,
        updated_at = NOW()
`

var _ ReaderProgressRepository = (*pgReaderProgressRepository)(nil)

type pgReaderProgressRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgReaderProgressRepository создает новый репозиторий прогресса читателей.
func NewPgReaderProgressRepository(db *pgxpool.Pool, logger *zap.Logger) ReaderProgressRepository {
	return &pgReaderProgressRepository{
		db:     db,
		logger: logger.Named("PgReaderProgressRepo"),
	}
}

func (r *pgReaderProgressRepository) Upsert(ctx context.Context, progress *models.ReaderProgress) error {
	if progress.ID == uuid.Nil {
		progress.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, upsertReaderProgressQuery,
		progress.ID, progress.UserID, progress.ChapterID, progress.PanelIndex, progress.ChoicesPath,
	)
	if err != nil {
		r.logger.Error("Failed to upsert reader progress",
			zap.String("userID", progress.UserID), zap.String("chapterID", progress.ChapterID), zap.Error(err))
		return fmt.Errorf("ошибка сохранения прогресса читателя %s: %w", progress.UserID, err)
	}
	return nil
}
