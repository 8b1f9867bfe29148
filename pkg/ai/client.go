package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

// ErrEmptyResponse возвращается, когда API не вернуло ни одного варианта.
var ErrEmptyResponse = errors.New("пустой ответ от API: не получены варианты")

// Client предоставляет интерфейс для работы с API нейросети через OpenRouter.
type Client struct {
	client     *openai.Client
	modelName  string
	timeout    time.Duration
	maxRetries int
}

// Config содержит конфигурацию для клиента нейросети.
type Config struct {
	APIKey     string
	BaseURL    string
	ModelName  string
	Timeout    int
	MaxRetries int
}

// Options управляет параметрами одного запроса генерации.
type Options struct {
	Temperature float32
	MaxTokens   int
	// RequireJSON включает проверку, что ответ — валидный JSON.
	// Невалидный ответ расходует попытку и генерация повторяется.
	RequireJSON bool
}

// Result — ответ модели вместе с метаданными для аудита ревизий.
type Result struct {
	Content    string
	Model      string
	TokensUsed int
}

// New создает новый экземпляр клиента нейросети.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не указан API ключ для OpenRouter")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "deepseek/deepseek-chat-v3-0324:free"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &Client{
		client:     openai.NewClientWithConfig(config),
		modelName:  cfg.ModelName,
		timeout:    time.Duration(cfg.Timeout) * time.Second,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// ModelName возвращает имя модели, которой выполняется генерация.
func (c *Client) ModelName() string {
	return c.modelName
}

// Generate выполняет один запрос генерации с retry.
// Транзиентные ошибки (сеть, 5xx, rate limit) повторяются до maxRetries
// с фиксированной задержкой; ошибки 4xx и отмена контекста терминальны.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}

	attempts := 0
	for attempts < c.maxRetries {
		attempts++

		log.Debug().Str("model", c.modelName).Int("attempt", attempts).Msg("Отправка запроса к AI")

		req := openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			TopP:        0.95,
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if isTerminal(err) {
				log.Error().Err(err).Int("attempt", attempts).Msg("Терминальная ошибка AI, retry не выполняется")
				return nil, fmt.Errorf("терминальная ошибка AI: %w", err)
			}
			log.Error().Err(err).Int("attempt", attempts).Msg("Ошибка при вызове CreateChatCompletion")
			if attempts >= c.maxRetries {
				return nil, fmt.Errorf("ошибка AI после %d попыток: %w", attempts, err)
			}
			time.Sleep(2 * time.Second)
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			log.Warn().Int("attempt", attempts).Msg("Пустой ответ от AI")
			if attempts >= c.maxRetries {
				return nil, ErrEmptyResponse
			}
			time.Sleep(2 * time.Second)
			continue
		}

		content := resp.Choices[0].Message.Content

		if opts.RequireJSON {
			content = CleanJSONResponse(content)
			var js json.RawMessage
			if json.Unmarshal([]byte(content), &js) != nil {
				log.Warn().Int("attempt", attempts).Msg("Ответ AI не является валидным JSON, пробуем снова...")
				if attempts >= c.maxRetries {
					return nil, fmt.Errorf("ответ AI не является валидным JSON после %d попыток", attempts)
				}
				time.Sleep(2 * time.Second)
				continue
			}
		}

		log.Info().
			Str("model", c.modelName).
			Int("attempt", attempts).
			Int("totalTokens", resp.Usage.TotalTokens).
			Msg("Получен ответ от API")

		tokens := resp.Usage.TotalTokens
		if tokens == 0 {
			tokens = CountTokens(systemPrompt + userPrompt + content)
		}

		return &Result{
			Content:    content,
			Model:      c.modelName,
			TokensUsed: tokens,
		}, nil
	}

	return nil, errors.New("не удалось получить валидный ответ от API после нескольких попыток")
}

// isTerminal сообщает, что повторять запрос бессмысленно.
func isTerminal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		// 429 транзиентен, остальные 4xx — ошибка запроса.
		return apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429
	}
	return false
}

// CleanJSONResponse срезает markdown-ограждения, которыми модели любят
// оборачивать JSON.
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
