package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StateTransition — запись одного перехода состояния страницы.
// Каждый переход фиксируется отдельной строкой для аудита workflow.
type StateTransition struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	PageID    uuid.UUID         `db:"page_id" json:"pageId"`
	FromState OrchestratorState `db:"from_state" json:"fromState"`
	ToState   OrchestratorState `db:"to_state" json:"toState"`
	StateData json.RawMessage   `db:"state_data" json:"stateData,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
}

// RevisionRequestData — side-data перехода при запросе ревизии.
// Явная структура вместо свободного JSON-вложения.
type RevisionRequestData struct {
	RevisionRequested bool   `json:"revision_requested"`
	UserFeedback      string `json:"user_feedback"`
}
