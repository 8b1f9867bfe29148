package models

import (
	"encoding/json"
	"time"
)

// Chapter представляет главу вебтуна.
// Panels и ChoicePoints хранятся как JSONB: их структуру определяет
// компилятор глав, ридеру они отдаются как есть.
type Chapter struct {
	ID           string          `db:"id" json:"id"`
	Title        string          `db:"title" json:"title"`
	Description  string          `db:"description" json:"description"`
	Panels       json.RawMessage `db:"panels" json:"panels,omitempty"`
	ChoicePoints json.RawMessage `db:"choice_points" json:"choicePoints,omitempty"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// ChapterMetadata — проекция главы для сборки контекста агента.
type ChapterMetadata struct {
	ChapterID   string `db:"id" json:"chapterId"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description,omitempty"`
}

// ChapterProgress — агрегированный прогресс авторинга по главе
// (аналог view v_chapter_progress).
type ChapterProgress struct {
	ChapterID     string     `db:"chapter_id" json:"chapterId"`
	Title         string     `db:"title" json:"title"`
	TotalPages    int        `db:"total_pages" json:"totalPages"`
	ApprovedPages int        `db:"approved_pages" json:"approvedPages"`
	LastActivity  *time.Time `db:"last_activity" json:"lastActivity,omitempty"`
}
