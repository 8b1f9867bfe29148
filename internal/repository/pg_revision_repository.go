package repository

import (
	"context"
	"errors"
	"fmt"

	"worthy-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	insertRevisionQuery = `
        INSERT INTO page_revisions
            (id, page_id, revision_type, version_number, content, agent_prompt, agent_model, agent_tokens_used, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
    `
	latestRevisionByKindQuery = `
        SELECT id, page_id, revision_type, version_number, content, agent_prompt, agent_model, agent_tokens_used, created_at
        FROM page_revisions
        WHERE page_id = $1 AND revision_type = $2
        ORDER BY version_number DESC
        LIMIT 1
    `
	listRevisionsByPageQuery = `
        SELECT id, page_id, revision_type, version_number, content, agent_prompt, agent_model, agent_tokens_used, created_at
        FROM page_revisions
        WHERE page_id = $1
        ORDER BY created_at DESC, version_number DESC
    `
)

var _ RevisionRepository = (*pgRevisionRepository)(nil)

type pgRevisionRepository struct {
	logger *zap.Logger
}

// NewPgRevisionRepository создает новый репозиторий ревизий страниц.
func NewPgRevisionRepository(logger *zap.Logger) RevisionRepository {
	return &pgRevisionRepository{
		logger: logger.Named("PgRevisionRepo"),
	}
}

func (r *pgRevisionRepository) Insert(ctx context.Context, querier DBTX, revision *models.PageRevision) error {
	if revision.ID == uuid.Nil {
		revision.ID = uuid.New()
	}
	_, err := querier.Exec(ctx, insertRevisionQuery,
		revision.ID, revision.PageID, revision.RevisionType, revision.VersionNumber,
		revision.Content, revision.AgentPrompt, revision.AgentModel, revision.AgentTokensUsed,
	)
	if err != nil {
		r.logger.Error("Failed to insert page revision",
			zap.String("pageID", revision.PageID.String()),
			zap.String("revisionType", string(revision.RevisionType)),
			zap.Int("versionNumber", revision.VersionNumber),
			zap.Error(err))
		return fmt.Errorf("ошибка записи ревизии страницы %s: %w", revision.PageID, err)
	}
	r.logger.Debug("Page revision inserted",
		zap.String("pageID", revision.PageID.String()),
		zap.String("revisionType", string(revision.RevisionType)),
		zap.Int("versionNumber", revision.VersionNumber))
	return nil
}

func (r *pgRevisionRepository) LatestByKind(ctx context.Context, querier DBTX, pageID uuid.UUID, kind models.RevisionKind) (*models.PageRevision, error) {
	revision := &models.PageRevision{}
	err := pgxscan.Get(ctx, querier, revision, latestRevisionByKindQuery, pageID, kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNoRevisions
		}
		r.logger.Error("Failed to get latest revision",
			zap.String("pageID", pageID.String()), zap.String("revisionType", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения последней ревизии страницы %s: %w", pageID, err)
	}
	return revision, nil
}

func (r *pgRevisionRepository) ListByPage(ctx context.Context, querier DBTX, pageID uuid.UUID) ([]models.PageRevision, error) {
	revisions := make([]models.PageRevision, 0)
	if err := pgxscan.Select(ctx, querier, &revisions, listRevisionsByPageQuery, pageID); err != nil {
		r.logger.Error("Failed to list page revisions", zap.String("pageID", pageID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки ревизий страницы %s: %w", pageID, err)
	}
	return revisions, nil
}
