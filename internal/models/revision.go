package models

import (
	"time"

	"github.com/google/uuid"
)

// RevisionKind различает ревизии наррации и диалогов.
type RevisionKind string

const (
	RevisionNarration RevisionKind = "narration"
	RevisionDialogue  RevisionKind = "dialogue"
)

// PageRevision — неизменяемый снапшот одного обновления контента страницы.
// Для каждой пары (страница, kind) номера версий образуют строго
// возрастающую последовательность без пропусков, начиная с 1.
type PageRevision struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	PageID          uuid.UUID    `db:"page_id" json:"pageId"`
	RevisionType    RevisionKind `db:"revision_type" json:"revisionType"`
	VersionNumber   int          `db:"version_number" json:"versionNumber"`
	Content         string       `db:"content" json:"content"`
	AgentPrompt     *string      `db:"agent_prompt" json:"agentPrompt,omitempty"`
	AgentModel      *string      `db:"agent_model" json:"agentModel,omitempty"`
	AgentTokensUsed *int         `db:"agent_tokens_used" json:"agentTokensUsed,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
}

// AgentMetadata — опциональные сведения об агенте, сгенерировавшем контент.
// Заполняется только когда контент произвел автоматический агент.
type AgentMetadata struct {
	Prompt     *string
	Model      *string
	TokensUsed *int
}
