// Команда seed загружает канонические референсы из markdown-файлов и
// создает тестовую главу со стартовой страницей для проверки state machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"worthy-server/internal/config"
	"worthy-server/internal/logger"
	"worthy-server/internal/models"
	"worthy-server/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	testChapterID          = "ch01_test_orchestrator"
	testChapterTitle       = "Chapter 1: Test Orchestrator"
	testChapterDescription = "Test chapter for validating orchestrator workflow"
	testPageInput          = "MC wakes in the mass grave. Cold, mud, flies. Realizes he's alive but others aren't. Scavengers approach."
)

// referenceFiles — какие markdown-файлы из директории референсов
// становятся какими записями canonical_refs.
var referenceFiles = []struct {
	fileName string
	id       string
	refType  string
	title    string
}{
	{"Worthy Story Bible.md", "worthy_story_bible_v1", "story_bible", "WORTHY Story Bible"},
	{"CANONICAL_REFERENCES.md", "canonical_references_v1", "canonical_refs", "Canonical References"},
	{"Worthy.md", "worthy_concepts_v1", "worthy_md", "WORTHY Concepts"},
}

func main() {
	refsDir := flag.String("refs", "refs", "директория с markdown-файлами канонических референсов")
	skipTestData := flag.Bool("skip-test-data", false, "не создавать тестовую главу и страницу")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "console",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to PostgreSQL")

	refRepo := repository.NewPgCanonicalRefRepository(pool, log)
	chapterRepo := repository.NewPgChapterRepository(pool, log)
	pageRepo := repository.NewPgPageRepository(log)

	if err := seedCanonicalRefs(ctx, refRepo, *refsDir, log); err != nil {
		log.Fatal("Failed to seed canonical references", zap.Error(err))
	}

	if !*skipTestData {
		if err := seedTestChapter(ctx, chapterRepo, pageRepo, pool, log); err != nil {
			log.Fatal("Failed to seed test chapter", zap.Error(err))
		}
	}

	log.Info("Seed completed")
}

// seedCanonicalRefs читает markdown-файлы и апсертит их в canonical_refs.
// Отсутствующий файл — предупреждение, а не ошибка: набор референсов
// в рабочей копии может быть неполным.
func seedCanonicalRefs(ctx context.Context, refRepo repository.CanonicalRefRepository, refsDir string, log *zap.Logger) error {
	seeded := 0
	for _, rf := range referenceFiles {
		path := filepath.Join(refsDir, rf.fileName)
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Skipping canonical reference, file not readable",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}

		err = refRepo.Upsert(ctx, &models.CanonicalReference{
			ID:      rf.id,
			RefType: rf.refType,
			Title:   rf.title,
			Content: string(content),
			Version: "1.0",
			Active:  true,
		})
		if err != nil {
			return fmt.Errorf("апсерт референса %s: %w", rf.id, err)
		}
		log.Info("Seeded canonical reference", zap.String("refID", rf.id))
		seeded++
	}

	if seeded == 0 {
		log.Warn("No canonical references loaded", zap.String("refsDir", refsDir))
	}
	return nil
}

// seedTestChapter создает тестовую главу и стартовую страницу.
// Существующая глава не пересоздается, страница добавляется только
// вместе с новой главой, чтобы повторные запуски не плодили страницы.
func seedTestChapter(
	ctx context.Context,
	chapterRepo repository.ChapterRepository,
	pageRepo repository.PageRepository,
	pool *pgxpool.Pool,
	log *zap.Logger,
) error {
	if _, err := chapterRepo.GetMetadata(ctx, testChapterID); err == nil {
		log.Info("Test chapter already exists", zap.String("chapterID", testChapterID))
		return nil
	}

	err := chapterRepo.Upsert(ctx, &models.Chapter{
		ID:          testChapterID,
		Title:       testChapterTitle,
		Description: testChapterDescription,
		Status:      "draft",
	})
	if err != nil {
		return fmt.Errorf("создание тестовой главы: %w", err)
	}
	log.Info("Created test chapter", zap.String("chapterID", testChapterID))

	page, err := pageRepo.Create(ctx, pool, testChapterID, testPageInput, models.StateAwaitingUserInput)
	if err != nil {
		return fmt.Errorf("создание тестовой страницы: %w", err)
	}
	log.Info("Created test page",
		zap.String("pageID", page.ID.String()),
		zap.Int("pageNumber", page.PageNumber),
	)
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping postgres database: %w", err)
	}
	return pool, nil
}
