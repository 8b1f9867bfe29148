package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackKind — тип пользовательского фидбека.
type FeedbackKind string

// FeedbackRevisionRequest — единственный тип в текущем дизайне; поле
// оставлено расширяемым.
const FeedbackRevisionRequest FeedbackKind = "revision_request"

// UserFeedback — заметка пользователя, привязанная к конкретной ревизии.
// RevisionID указывает на последнюю ревизию соответствующего типа на момент
// создания фидбека.
type UserFeedback struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	PageID       uuid.UUID    `db:"page_id" json:"pageId"`
	RevisionID   *uuid.UUID   `db:"revision_id" json:"revisionId,omitempty"`
	FeedbackText string       `db:"feedback_text" json:"feedbackText"`
	FeedbackType FeedbackKind `db:"feedback_type" json:"feedbackType"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}
