package mocks

import (
	"context"
	"time"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock TxManager — выполняет fn с nil-querier без реальной транзакции.
type TxManager struct {
	mock.Mock
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

// Mock PageRepository
type PageRepository struct {
	mock.Mock
}

func (m *PageRepository) Create(ctx context.Context, querier repository.DBTX, chapterID, userInput string, status models.OrchestratorState) (*models.StoryPage, error) {
	args := m.Called(ctx, querier, chapterID, userInput, status)
	page, _ := args.Get(0).(*models.StoryPage)
	return page, args.Error(1)
}
func (m *PageRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.StoryPage, error) {
	args := m.Called(ctx, querier, id)
	page, _ := args.Get(0).(*models.StoryPage)
	return page, args.Error(1)
}
func (m *PageRepository) UpdateNarration(ctx context.Context, querier repository.DBTX, id uuid.UUID, narrationText string) (int, error) {
	args := m.Called(ctx, querier, id, narrationText)
	return args.Int(0), args.Error(1)
}
func (m *PageRepository) UpdateDialogue(ctx context.Context, querier repository.DBTX, id uuid.UUID, dialogue []models.DialogueLine) (int, error) {
	args := m.Called(ctx, querier, id, dialogue)
	return args.Int(0), args.Error(1)
}
func (m *PageRepository) UpdateStatus(ctx context.Context, querier repository.DBTX, id uuid.UUID, status models.OrchestratorState) error {
	args := m.Called(ctx, querier, id, status)
	return args.Error(0)
}
func (m *PageRepository) SetApprovedAt(ctx context.Context, querier repository.DBTX, id uuid.UUID, approvedAt time.Time) error {
	args := m.Called(ctx, querier, id, approvedAt)
	return args.Error(0)
}
func (m *PageRepository) ListPriorApproved(ctx context.Context, querier repository.DBTX, chapterID string, beforePageNumber int) ([]models.PriorPage, error) {
	args := m.Called(ctx, querier, chapterID, beforePageNumber)
	pages, _ := args.Get(0).([]models.PriorPage)
	return pages, args.Error(1)
}
func (m *PageRepository) ListByChapter(ctx context.Context, querier repository.DBTX, chapterID string) ([]models.PageStatusSummary, error) {
	args := m.Called(ctx, querier, chapterID)
	summaries, _ := args.Get(0).([]models.PageStatusSummary)
	return summaries, args.Error(1)
}

// Mock RevisionRepository
type RevisionRepository struct {
	mock.Mock
}

func (m *RevisionRepository) Insert(ctx context.Context, querier repository.DBTX, revision *models.PageRevision) error {
	args := m.Called(ctx, querier, revision)
	return args.Error(0)
}
func (m *RevisionRepository) LatestByKind(ctx context.Context, querier repository.DBTX, pageID uuid.UUID, kind models.RevisionKind) (*models.PageRevision, error) {
	args := m.Called(ctx, querier, pageID, kind)
	revision, _ := args.Get(0).(*models.PageRevision)
	return revision, args.Error(1)
}
func (m *RevisionRepository) ListByPage(ctx context.Context, querier repository.DBTX, pageID uuid.UUID) ([]models.PageRevision, error) {
	args := m.Called(ctx, querier, pageID)
	revisions, _ := args.Get(0).([]models.PageRevision)
	return revisions, args.Error(1)
}

// Mock FeedbackRepository
type FeedbackRepository struct {
	mock.Mock
}

func (m *FeedbackRepository) Insert(ctx context.Context, querier repository.DBTX, feedback *models.UserFeedback) error {
	args := m.Called(ctx, querier, feedback)
	return args.Error(0)
}
func (m *FeedbackRepository) ListByPage(ctx context.Context, querier repository.DBTX, pageID uuid.UUID) ([]models.UserFeedback, error) {
	args := m.Called(ctx, querier, pageID)
	feedback, _ := args.Get(0).([]models.UserFeedback)
	return feedback, args.Error(1)
}
func (m *FeedbackRepository) ListTexts(ctx context.Context, querier repository.DBTX, pageID uuid.UUID, kind models.FeedbackKind) ([]string, error) {
	args := m.Called(ctx, querier, pageID, kind)
	texts, _ := args.Get(0).([]string)
	return texts, args.Error(1)
}

// Mock TransitionRepository
type TransitionRepository struct {
	mock.Mock
}

func (m *TransitionRepository) Insert(ctx context.Context, querier repository.DBTX, transition *models.StateTransition) error {
	args := m.Called(ctx, querier, transition)
	return args.Error(0)
}

// Mock ChapterRepository
type ChapterRepository struct {
	mock.Mock
}

func (m *ChapterRepository) GetByID(ctx context.Context, id string) (*models.Chapter, error) {
	args := m.Called(ctx, id)
	chapter, _ := args.Get(0).(*models.Chapter)
	return chapter, args.Error(1)
}
func (m *ChapterRepository) GetMetadata(ctx context.Context, id string) (*models.ChapterMetadata, error) {
	args := m.Called(ctx, id)
	metadata, _ := args.Get(0).(*models.ChapterMetadata)
	return metadata, args.Error(1)
}
func (m *ChapterRepository) ListProgress(ctx context.Context) ([]models.ChapterProgress, error) {
	args := m.Called(ctx)
	progress, _ := args.Get(0).([]models.ChapterProgress)
	return progress, args.Error(1)
}
func (m *ChapterRepository) Upsert(ctx context.Context, chapter *models.Chapter) error {
	args := m.Called(ctx, chapter)
	return args.Error(0)
}

// Mock CanonicalRefRepository
type CanonicalRefRepository struct {
	mock.Mock
}

func (m *CanonicalRefRepository) ListActive(ctx context.Context) ([]models.CanonicalReference, error) {
	args := m.Called(ctx)
	refs, _ := args.Get(0).([]models.CanonicalReference)
	return refs, args.Error(1)
}
func (m *CanonicalRefRepository) GetByType(ctx context.Context, refType string) (*models.CanonicalReference, error) {
	args := m.Called(ctx, refType)
	ref, _ := args.Get(0).(*models.CanonicalReference)
	return ref, args.Error(1)
}
func (m *CanonicalRefRepository) Upsert(ctx context.Context, ref *models.CanonicalReference) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// Mock ReaderProgressRepository
type ReaderProgressRepository struct {
	mock.Mock
}

func (m *ReaderProgressRepository) Upsert(ctx context.Context, progress *models.ReaderProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

// Mock SketchRepository
type SketchRepository struct {
	mock.Mock
}

func (m *SketchRepository) Insert(ctx context.Context, sketch *models.Sketch) error {
	args := m.Called(ctx, sketch)
	return args.Error(0)
}
func (m *SketchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sketch, error) {
	args := m.Called(ctx, id)
	sketch, _ := args.Get(0).(*models.Sketch)
	return sketch, args.Error(1)
}
