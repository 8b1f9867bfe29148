package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReaderProgress — позиция читателя внутри главы вместе с путем выборов.
type ReaderProgress struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"userId"`
	ChapterID   string          `db:"chapter_id" json:"chapterId"`
	PanelIndex  int             `db:"panel_index" json:"panelIndex"`
	ChoicesPath json.RawMessage `db:"choices_path" json:"choicesPath,omitempty"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Sketch — запись о сгенерированном скетче панели.
type Sketch struct {
	ID          uuid.UUID  `db:"id" json:"sketchId"`
	PanelID     *int       `db:"panel_id" json:"panelId,omitempty"`
	Prompt      string     `db:"prompt" json:"prompt"`
	ImageURL    string     `db:"image_url" json:"imageUrl"`
	Status      string     `db:"status" json:"status"`
	GeneratedAt *time.Time `db:"generated_at" json:"generatedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// Статусы скетча.
const (
	SketchStatusPending    = "pending"
	SketchStatusGenerating = "generating"
	SketchStatusReady      = "ready"
	SketchStatusFailed     = "failed"
)
