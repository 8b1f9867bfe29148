package sketch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Дефолты стиля, подставляемые в промпт, если клиент не передал свои.
const (
	DefaultStyle = "cinematic illustration"
	DefaultMood  = "dramatic"
)

// Generator строит URL скетча в Pollinations и верифицирует его HEAD-запросом.
// Сервис генерации stateless: картинка рендерится на стороне Pollinations
// при первом GET, мы только проверяем, что URL отвечает.
type Generator struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewGenerator создает новый генератор скетчей.
func NewGenerator(baseURL string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) *Generator {
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai/prompt/"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Generator{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger.Named("SketchGenerator"),
	}
}

// BuildPrompt собирает полный промпт скетча из описания панели и стиля.
func BuildPrompt(prompt, style, mood string) string {
	if style == "" {
		style = DefaultStyle
	}
	if mood == "" {
		mood = DefaultMood
	}
	return fmt.Sprintf("%s. Style: %s. Mood: %s", prompt, style, mood)
}

// ImageURL возвращает URL изображения для полного промпта.
func (g *Generator) ImageURL(fullPrompt string) string {
	return g.baseURL + url.PathEscape(fullPrompt)
}

// Verify проверяет HEAD-запросом, что URL изображения отвечает.
// Неответивший URL повторяется до maxRetries с фиксированной задержкой.
func (g *Generator) Verify(ctx context.Context, imageURL string) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
		if err != nil {
			return fmt.Errorf("ошибка подготовки HEAD-запроса скетча: %w", err)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
			g.logger.Warn("Sketch HEAD request failed",
				zap.Int("attempt", attempt), zap.Error(err))
		} else {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			g.logger.Warn("Sketch URL returned non-success status",
				zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
		}

		if attempt < g.maxRetries {
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("скетч недоступен после %d попыток: %w", g.maxRetries, lastErr)
}
