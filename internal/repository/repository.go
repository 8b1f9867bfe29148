package repository

import (
	"context"
	"time"

	"worthy-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX — общий интерфейс для pgxpool.Pool и pgx.Tx, чтобы репозитории
// могли работать как напрямую с пулом, так и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxManager выполняет функцию в транзакции с автоматическим rollback.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// PageRepository управляет строками story_pages.
//
// Нумерация страниц и инкремент версий выполняются на стороне SQL, чтобы
// конкурентные запросы не могли получить одинаковый номер версии.
type PageRepository interface {
	// Create создает страницу со следующим номером в главе.
	Create(ctx context.Context, querier DBTX, chapterID, userInput string, status models.OrchestratorState) (*models.StoryPage, error)
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.StoryPage, error)
	// UpdateNarration перезаписывает текст наррации и возвращает новую версию.
	UpdateNarration(ctx context.Context, querier DBTX, id uuid.UUID, narrationText string) (int, error)
	// UpdateDialogue перезаписывает диалог и возвращает новую версию.
	UpdateDialogue(ctx context.Context, querier DBTX, id uuid.UUID, dialogue []models.DialogueLine) (int, error)
	UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, status models.OrchestratorState) error
	SetApprovedAt(ctx context.Context, querier DBTX, id uuid.UUID, approvedAt time.Time) error
	// ListPriorApproved возвращает одобренные страницы главы с номером
	// строго меньше beforePageNumber, по возрастанию номера.
	ListPriorApproved(ctx context.Context, querier DBTX, chapterID string, beforePageNumber int) ([]models.PriorPage, error)
	// ListByChapter возвращает сводки статусов страниц главы по возрастанию номера.
	ListByChapter(ctx context.Context, querier DBTX, chapterID string) ([]models.PageStatusSummary, error)
}

// RevisionRepository управляет строками page_revisions.
type RevisionRepository interface {
	Insert(ctx context.Context, querier DBTX, revision *models.PageRevision) error
	// LatestByKind возвращает последнюю ревизию данного типа для страницы.
	LatestByKind(ctx context.Context, querier DBTX, pageID uuid.UUID, kind models.RevisionKind) (*models.PageRevision, error)
	// ListByPage возвращает все ревизии страницы, новые первыми.
	ListByPage(ctx context.Context, querier DBTX, pageID uuid.UUID) ([]models.PageRevision, error)
}

// FeedbackRepository управляет строками user_feedback.
type FeedbackRepository interface {
	Insert(ctx context.Context, querier DBTX, feedback *models.UserFeedback) error
	// ListByPage возвращает весь фидбек страницы, новый первым.
	ListByPage(ctx context.Context, querier DBTX, pageID uuid.UUID) ([]models.UserFeedback, error)
	// ListTexts возвращает тексты фидбека данного типа, новые первыми.
	ListTexts(ctx context.Context, querier DBTX, pageID uuid.UUID, kind models.FeedbackKind) ([]string, error)
}

// TransitionRepository пишет аудит переходов состояний.
type TransitionRepository interface {
	Insert(ctx context.Context, querier DBTX, transition *models.StateTransition) error
}

// ChapterRepository управляет строками chapters.
type ChapterRepository interface {
	GetByID(ctx context.Context, id string) (*models.Chapter, error)
	GetMetadata(ctx context.Context, id string) (*models.ChapterMetadata, error)
	// ListProgress возвращает сводку прогресса авторинга по всем главам,
	// отсортированную по последней активности.
	ListProgress(ctx context.Context) ([]models.ChapterProgress, error)
	Upsert(ctx context.Context, chapter *models.Chapter) error
}

// CanonicalRefRepository читает канонические референсы.
type CanonicalRefRepository interface {
	// ListActive возвращает активные референсы по возрастанию ref_type.
	ListActive(ctx context.Context) ([]models.CanonicalReference, error)
	GetByType(ctx context.Context, refType string) (*models.CanonicalReference, error)
	Upsert(ctx context.Context, ref *models.CanonicalReference) error
}

// ReaderProgressRepository хранит позиции читателей.
type ReaderProgressRepository interface {
	Upsert(ctx context.Context, progress *models.ReaderProgress) error
}

// SketchRepository хранит записи о сгенерированных скетчах.
type SketchRepository interface {
	Insert(ctx context.Context, sketch *models.Sketch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sketch, error)
}
