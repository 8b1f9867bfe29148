package config

import (
	"fmt"
	"time"

	"worthy-server/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию для WORTHY сервера.
type Config struct {
	// Настройки сервера
	Port        string `envconfig:"SERVER_PORT" default:"3001"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// CORS (фронтенд ридера и админка)
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки RabbitMQ
	RabbitMQURL         string `envconfig:"RABBITMQ_URL" required:"true"`
	GenerationTaskQueue string `envconfig:"GENERATION_TASK_QUEUE" default:"page_generation_tasks"`

	// Настройки Redis (кеш канонических референсов)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RefsCacheTTL  time.Duration `envconfig:"CANONICAL_REFS_CACHE_TTL" default:"10m"`
	RedisPassword string

	// Настройки AI (OpenRouter, openai-совместимый API)
	AIBaseURL    string `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel      string `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	AITimeout    int    `envconfig:"AI_TIMEOUT_SECONDS" default:"120"`
	AIMaxRetries int    `envconfig:"AI_MAX_RETRIES" default:"3"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Настройки генерации скетчей (pollinations.ai)
	SketchBaseURL    string        `envconfig:"SKETCH_BASE_URL" default:"https://image.pollinations.ai/prompt/"`
	SketchMaxRetries int           `envconfig:"SKETCH_MAX_RETRIES" default:"3"`
	SketchRetryDelay time.Duration `envconfig:"SKETCH_RETRY_DELAY" default:"2s"`

	// Директория бандлов глав (компилятор пишет сюда script.json и т.д.)
	ChaptersDir string `envconfig:"CHAPTERS_DIR" default:"chapters"`

	// Миграции встроены через embed и применяются на старте.
	RunMigrations bool `envconfig:"RUN_MIGRATIONS" default:"true"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации worthy-server: %w", err)
	}

	// Обязательные секреты
	var err error
	cfg.DBPassword, err = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать секрет db_password: %w", err)
	}
	cfg.AIAPIKey, err = utils.ReadSecretOrEnv("openrouter_api_key", "OPENROUTER_API_KEY")
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать секрет openrouter_api_key: %w", err)
	}

	// Необязательные секреты
	if password, err := utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD"); err == nil {
		cfg.RedisPassword = password
	}

	return &cfg, nil
}
