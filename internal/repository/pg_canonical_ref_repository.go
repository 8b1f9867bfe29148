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
	listActiveRefsQuery = `
        SELECT id, ref_type, title, content, version, active, created_at, updated_at
        FROM canonical_refs
        WHERE active = TRUE
        ORDER BY ref_type ASC
    `
	getRefByTypeQuery = `
        SELECT id, ref_type, title, content, version, active, created_at, updated_at
        FROM canonical_refs
        WHERE ref_type = $1 AND active = TRUE
        LIMIT 1
    `
	upsertRefQuery = `
        INSERT INTO canonical_refs (id, ref_type, title, content, version, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE SET
            ref_type = EXCLUDED.ref_type,
            title = EXCLUDED.title,
            content = EXCLUDED.content,
            version = EXCLUDED.version,
            active = EXCLUDED.active,
            updated_at = NOW()
    `
)

var _ CanonicalRefRepository = (*pgCanonicalRefRepository)(nil)

type pgCanonicalRefRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgCanonicalRefRepository создает новый репозиторий канонических референсов.
func NewPgCanonicalRefRepository(db *pgxpool.Pool, logger *zap.Logger) CanonicalRefRepository {
	return &pgCanonicalRefRepository{
		db:     db,
		logger: logger.Named("PgCanonicalRefRepo"),
	}
}

func (r *pgCanonicalRefRepository) ListActive(ctx context.Context) ([]models.CanonicalReference, error) {
	refs := make([]models.CanonicalReference, 0)
	if err := pgxscan.Select(ctx, r.db, &refs, listActiveRefsQuery); err != nil {
		r.logger.Error("Failed to list canonical refs", zap.Error(err))
		return nil, fmt.Errorf("ошибка загрузки канонических референсов: %w", err)
	}
	return refs, nil
}

func (r *pgCanonicalRefRepository) GetByType(ctx context.Context, refType string) (*models.CanonicalReference, error) {
	ref := &models.CanonicalReference{}
	err := pgxscan.Get(ctx, r.db, ref, getRefByTypeQuery, refType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get canonical ref", zap.String("refType", refType), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения референса %s: %w", refType, err)
	}
	return ref, nil
}

func (r *pgCanonicalRefRepository) Upsert(ctx context.Context, ref *models.CanonicalReference) error {
	_, err := r.db.Exec(ctx, upsertRefQuery,
		ref.ID, ref.RefType, ref.Title, ref.Content, ref.Version, ref.Active,
	)
	if err != nil {
		r.logger.Error("Failed to upsert canonical ref", zap.String("refID", ref.ID), zap.Error(err))
		return fmt.Errorf("ошибка сохранения референса %s: %w", ref.ID, err)
	}
	return nil
}
