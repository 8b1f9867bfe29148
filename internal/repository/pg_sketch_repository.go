package repository

import (
	"context"
	"errors"
	"fmt"

	"worthy-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	insertSketchQuery = `
        INSERT INTO sketches (id, panel_id, prompt, image_url, status, generated_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
    `
	getSketchByIDQuery = `
        SELECT id, panel_id, prompt, image_url, status, generated_at, created_at
        FROM sketches
        WHERE id = $1
    `
)

var _ SketchRepository = (*pgSketchRepository)(nil)

type pgSketchRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgSketchRepository создает новый репозиторий скетчей.
func NewPgSketchRepository(db *pgxpool.Pool, logger *zap.Logger) SketchRepository {
	return &pgSketchRepository{
		db:     db,
		logger: logger.Named("PgSketchRepo"),
	}
}

func (r *pgSketchRepository) Insert(ctx context.Context, sketch *models.Sketch) error {
	if sketch.ID == uuid.Nil {
		sketch.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, insertSketchQuery,
		sketch.ID, sketch.PanelID, sketch.Prompt, sketch.ImageURL, sketch.Status, sketch.GeneratedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert sketch", zap.String("sketchID", sketch.ID.String()), zap.Error(err))
		return fmt.Errorf("ошибка записи скетча %s: %w", sketch.ID, err)
	}
	return nil
}

func (r *pgSketchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sketch, error) {
	sketch := &models.Sketch{}
	err := pgxscan.Get(ctx, r.db, sketch, getSketchByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSketchNotFound
		}
		r.logger.Error("Failed to get sketch", zap.String("sketchID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения скетча %s: %w", id, err)
	}
	return sketch, nil
}
