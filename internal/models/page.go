package models

import (
	"time"

	"github.com/google/uuid"
)

// OrchestratorState описывает состояние страницы в workflow создания.
type OrchestratorState string

const (
	StateAwaitingUserInput      OrchestratorState = "awaiting_user_input"
	StateGeneratingNarration    OrchestratorState = "generating_narration"
	StateUserReviewingNarration OrchestratorState = "user_reviewing_narration"
	StateGeneratingDialogue     OrchestratorState = "generating_dialogue"
	StateUserReviewingDialogue  OrchestratorState = "user_reviewing_dialogue"
	StatePageApproved           OrchestratorState = "page_approved"
	StateError                  OrchestratorState = "error"
)

// DialogueLine представляет одну реплику диалога на странице.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// StoryPage представляет одну страницу главы вебтуна.
// Версии narration/dialogue начинаются с 0 ("контент еще не записан")
// и увеличиваются ровно на 1 при каждой перезаписи содержимого.
type StoryPage struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ChapterID        string            `db:"chapter_id" json:"chapterId"`
	PageNumber       int               `db:"page_number" json:"pageNumber"`
	UserInput        string            `db:"user_input_text" json:"userInput"`
	NarrationText    *string           `db:"narration_text" json:"narrationText,omitempty"`
	NarrationVersion int               `db:"narration_version" json:"narrationVersion"`
	DialogueJSON     []DialogueLine    `db:"-" json:"dialogue,omitempty"`
	DialogueVersion  int               `db:"dialogue_version" json:"dialogueVersion"`
	Status           OrchestratorState `db:"status" json:"status"`
	ApprovedAt       *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// PageStatusSummary — сокращенный статус страницы для списков в админке
// (аналог view v_page_status_summary).
type PageStatusSummary struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ChapterID        string            `db:"chapter_id" json:"chapterId"`
	PageNumber       int               `db:"page_number" json:"pageNumber"`
	Status           OrchestratorState `db:"status" json:"status"`
	NarrationVersion int               `db:"narration_version" json:"narrationVersion"`
	DialogueVersion  int               `db:"dialogue_version" json:"dialogueVersion"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}
