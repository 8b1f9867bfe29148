package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worthy-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	// Номер страницы назначается в SQL: агрегат по главе внутри той же
	// команды, чтобы нумерация была последовательной в write-порядке.
	createPageQuery = `
        INSERT INTO story_pages
            (id, chapter_id, page_number, user_input_text, status, created_at, updated_at)
        SELECT $1, $2, COALESCE(MAX(page_number), 0) + 1, $3, $4, NOW(), NOW()
        FROM story_pages
        WHERE chapter_id = $2
        RETURNING id, chapter_id, page_number, user_input_text, narration_text, narration_version,
                  dialogue_json, dialogue_version, status, approved_at, created_at, updated_at
    `
	getPageByIDQuery = `
        SELECT id, chapter_id, page_number, user_input_text, narration_text, narration_version,
               dialogue_json, dialogue_version, status, approved_at, created_at, updated_at
        FROM story_pages
        WHERE id = $1
    `
	updateNarrationQuery = `
        UPDATE story_pages
        SET narration_text = $2, narration_version = narration_version + 1, updated_at = NOW()
        WHERE id = $1
        RETURNING narration_version
    `
	updateDialogueQuery = `
        UPDATE story_pages
        SET dialogue_json = $2, dialogue_version = dialogue_version + 1, updated_at = NOW()
        WHERE id = $1
        RETURNING dialogue_version
    `
	updatePageStatusQuery = `UPDATE story_pages SET status = $2, updated_at = NOW() WHERE id = $1`
	setApprovedAtQuery    = `UPDATE story_pages SET approved_at = $2, updated_at = NOW() WHERE id = $1`

	listPriorApprovedQuery = `
        SELECT page_number, COALESCE(narration_text, '') AS narration_text, COALESCE(dialogue_json, '[]'::jsonb) AS dialogue_json
        FROM story_pages
        WHERE chapter_id = $1 AND status = $2 AND page_number < $3
        ORDER BY page_number ASC
    `
	listPagesByChapterQuery = `
        SELECT id, chapter_id, page_number, status, narration_version, dialogue_version, updated_at
        FROM story_pages
        WHERE chapter_id = $1
        ORDER BY page_number ASC
    `
)

// Compile-time check
var _ PageRepository = (*pgPageRepository)(nil)

type pgPageRepository struct {
	logger *zap.Logger
}

// NewPgPageRepository создает новый репозиторий страниц.
// Репозиторий не привязан к пулу: все методы принимают querier (пул или tx).
func NewPgPageRepository(logger *zap.Logger) PageRepository {
	return &pgPageRepository{
		logger: logger.Named("PgPageRepo"),
	}
}

func (r *pgPageRepository) Create(ctx context.Context, querier DBTX, chapterID, userInput string, status models.OrchestratorState) (*models.StoryPage, error) {
	id := uuid.New()
	logFields := []zap.Field{zap.String("pageID", id.String()), zap.String("chapterID", chapterID)}
	r.logger.Debug("Creating story page", logFields...)

	page, err := scanPage(querier.QueryRow(ctx, createPageQuery, id, chapterID, userInput, status))
	if err != nil {
		r.logger.Error("Failed to create story page", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка создания страницы в главе %s: %w", chapterID, err)
	}
	r.logger.Info("Story page created", append(logFields, zap.Int("pageNumber", page.PageNumber))...)
	return page, nil
}

func (r *pgPageRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.StoryPage, error) {
	page, err := scanPage(querier.QueryRow(ctx, getPageByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story page not found", zap.String("pageID", id.String()))
			return nil, models.ErrPageNotFound
		}
		r.logger.Error("Failed to get story page", zap.String("pageID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения страницы %s: %w", id, err)
	}
	return page, nil
}

func (r *pgPageRepository) UpdateNarration(ctx context.Context, querier DBTX, id uuid.UUID, narrationText string) (int, error) {
	var version int
	err := querier.QueryRow(ctx, updateNarrationQuery, id, narrationText).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrPageNotFound
		}
		r.logger.Error("Failed to update narration", zap.String("pageID", id.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка обновления наррации страницы %s: %w", id, err)
	}
	return version, nil
}

func (r *pgPageRepository) UpdateDialogue(ctx context.Context, querier DBTX, id uuid.UUID, dialogue []models.DialogueLine) (int, error) {
	dialogueJSON, err := json.Marshal(dialogue)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации диалога страницы %s: %w", id, err)
	}

	var version int
	err = querier.QueryRow(ctx, updateDialogueQuery, id, dialogueJSON).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrPageNotFound
		}
		r.logger.Error("Failed to update dialogue", zap.String("pageID", id.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка обновления диалога страницы %s: %w", id, err)
	}
	return version, nil
}

func (r *pgPageRepository) UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, status models.OrchestratorState) error {
	tag, err := querier.Exec(ctx, updatePageStatusQuery, id, status)
	if err != nil {
		r.logger.Error("Failed to update page status",
			zap.String("pageID", id.String()), zap.String("status", string(status)), zap.Error(err))
		return fmt.Errorf("ошибка обновления статуса страницы %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	return nil
}

func (r *pgPageRepository) SetApprovedAt(ctx context.Context, querier DBTX, id uuid.UUID, approvedAt time.Time) error {
	tag, err := querier.Exec(ctx, setApprovedAtQuery, id, approvedAt)
	if err != nil {
		r.logger.Error("Failed to set approved_at", zap.String("pageID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка установки approved_at страницы %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPageNotFound
	}
	return nil
}

func (r *pgPageRepository) ListPriorApproved(ctx context.Context, querier DBTX, chapterID string, beforePageNumber int) ([]models.PriorPage, error) {
	rows, err := querier.Query(ctx, listPriorApprovedQuery, chapterID, models.StatePageApproved, beforePageNumber)
	if err != nil {
		r.logger.Error("Failed to list prior pages", zap.String("chapterID", chapterID), zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки предыдущих страниц главы %s: %w", chapterID, err)
	}
	defer rows.Close()

	pages := make([]models.PriorPage, 0)
	for rows.Next() {
		var page models.PriorPage
		var dialogueJSON []byte
		if err := rows.Scan(&page.PageNumber, &page.NarrationText, &dialogueJSON); err != nil {
			return nil, fmt.Errorf("ошибка чтения предыдущей страницы главы %s: %w", chapterID, err)
		}
		if err := json.Unmarshal(dialogueJSON, &page.Dialogue); err != nil {
			return nil, fmt.Errorf("ошибка разбора диалога предыдущей страницы главы %s: %w", chapterID, err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации предыдущих страниц главы %s: %w", chapterID, err)
	}
	return pages, nil
}

func (r *pgPageRepository) ListByChapter(ctx context.Context, querier DBTX, chapterID string) ([]models.PageStatusSummary, error) {
	summaries := make([]models.PageStatusSummary, 0)
	if err := pgxscan.Select(ctx, querier, &summaries, listPagesByChapterQuery, chapterID); err != nil {
		r.logger.Error("Failed to list chapter pages", zap.String("chapterID", chapterID), zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки страниц главы %s: %w", chapterID, err)
	}
	return summaries, nil
}

// scanPage читает полную строку story_pages, разворачивая dialogue_json.
func scanPage(row pgx.Row) (*models.StoryPage, error) {
	page := &models.StoryPage{}
	var dialogueJSON []byte
	err := row.Scan(
		&page.ID, &page.ChapterID, &page.PageNumber, &page.UserInput,
		&page.NarrationText, &page.NarrationVersion,
		&dialogueJSON, &page.DialogueVersion,
		&page.Status, &page.ApprovedAt, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dialogueJSON) > 0 {
		if err := json.Unmarshal(dialogueJSON, &page.DialogueJSON); err != nil {
			return nil, fmt.Errorf("ошибка разбора dialogue_json страницы %s: %w", page.ID, err)
		}
	}
	return page, nil
}
