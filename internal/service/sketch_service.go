package service

import (
	"context"
	"time"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"
	"worthy-server/internal/sketch"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SketchService генерирует скетчи панелей через внешний image-сервис и
// хранит записи о них.
type SketchService struct {
	generator  *sketch.Generator
	sketchRepo repository.SketchRepository
	logger     *zap.Logger
}

// NewSketchService создает новый сервис скетчей.
func NewSketchService(generator *sketch.Generator, sketchRepo repository.SketchRepository, logger *zap.Logger) *SketchService {
	return &SketchService{
		generator:  generator,
		sketchRepo: sketchRepo,
		logger:     logger.Named("SketchService"),
	}
}

// Generate строит URL скетча, верифицирует его и сохраняет запись.
// Неответивший URL сохраняется со статусом failed: запись остается для
// диагностики, клиент получает статус в ответе.
func (s *SketchService) Generate(ctx context.Context, prompt, style, mood string, panelID *int) (*models.Sketch, error) {
	fullPrompt := sketch.BuildPrompt(prompt, style, mood)
	imageURL := s.generator.ImageURL(fullPrompt)

	record := &models.Sketch{
		ID:      uuid.New(),
		PanelID: panelID,
		Prompt:  fullPrompt,
	}

	if err := s.generator.Verify(ctx, imageURL); err != nil {
		s.logger.Warn("Sketch verification failed", zap.String("sketchID", record.ID.String()), zap.Error(err))
		record.Status = models.SketchStatusFailed
	} else {
		now := time.Now().UTC()
		record.Status = models.SketchStatusReady
		record.GeneratedAt = &now
	}
	record.ImageURL = imageURL

	if err := s.sketchRepo.Insert(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("Sketch generated",
		zap.String("sketchID", record.ID.String()), zap.String("status", record.Status))
	return record, nil
}

// Get возвращает запись скетча по id.
func (s *SketchService) Get(ctx context.Context, id uuid.UUID) (*models.Sketch, error) {
	return s.sketchRepo.GetByID(ctx, id)
}
