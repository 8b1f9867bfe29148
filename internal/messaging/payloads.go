package messaging

import "github.com/google/uuid"

// Типы задач генерации в очереди page_generation_tasks.
const (
	TaskTypeNarration = "narration"
	TaskTypeDialogue  = "dialogue"
)

// GenerationTaskPayload — задача генерации контента страницы для воркера.
// TaskType определяет, какой этап конвейера выполняется; Feedback заполняется
// только при повторной генерации по запросу ревизии.
type GenerationTaskPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	PageID    uuid.UUID `json:"page_id"`
	ChapterID string    `json:"chapter_id"`
	TaskType  string    `json:"task_type"`
	Feedback  string    `json:"feedback,omitempty"`
}
