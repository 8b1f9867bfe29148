package repository

import (
	"context"
	"fmt"

	"worthy-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const insertTransitionQuery = `
    INSERT INTO state_transitions (id, page_id, from_state, to_state, state_data, created_at)
    VALUES ($1, $2, $3, $4, $5, NOW())
`

var _ TransitionRepository = (*pgTransitionRepository)(nil)

type pgTransitionRepository struct {
	logger *zap.Logger
}

// NewPgTransitionRepository создает новый репозиторий аудита переходов.
func NewPgTransitionRepository(logger *zap.Logger) TransitionRepository {
	return &pgTransitionRepository{
		logger: logger.Named("PgTransitionRepo"),
	}
}

func (r *pgTransitionRepository) Insert(ctx context.Context, querier DBTX, transition *models.StateTransition) error {
	if transition.ID == uuid.Nil {
		transition.ID = uuid.New()
	}
	_, err := querier.Exec(ctx, insertTransitionQuery,
		transition.ID, transition.PageID, transition.FromState, transition.ToState, transition.StateData,
	)
	if err != nil {
		r.logger.Error("Failed to insert state transition",
			zap.String("pageID", transition.PageID.String()),
			zap.String("fromState", string(transition.FromState)),
			zap.String("toState", string(transition.ToState)),
			zap.Error(err))
		return fmt.Errorf("ошибка записи перехода состояния страницы %s: %w", transition.PageID, err)
	}
	return nil
}
