package handler

import (
	"encoding/json"

	"worthy-server/internal/models"
	"worthy-server/internal/service"
)

// --- Request structs ---

type startPageRequest struct {
	ChapterID string `json:"chapterId" binding:"required"`
	UserInput string `json:"userInput" binding:"required"`
}

// agentMeta — опциональные сведения об агенте в запросах записи контента.
type agentMeta struct {
	AgentPrompt     *string `json:"agentPrompt"`
	AgentModel      *string `json:"agentModel"`
	AgentTokensUsed *int    `json:"agentTokensUsed"`
}

// toModel возвращает nil, если агентские поля не заполнены
// (контент записал человек).
func (m agentMeta) toModel() *models.AgentMetadata {
	if m.AgentPrompt == nil && m.AgentModel == nil && m.AgentTokensUsed == nil {
		return nil
	}
	return &models.AgentMetadata{
		Prompt:     m.AgentPrompt,
		Model:      m.AgentModel,
		TokensUsed: m.AgentTokensUsed,
	}
}

type updateNarrationRequest struct {
	agentMeta
	NarrationText string `json:"narrationText" binding:"required"`
}

type reviseNarrationRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

type updateDialogueRequest struct {
	agentMeta
	Dialogue []models.DialogueLine `json:"dialogue" binding:"required"`
}

type saveProgressRequest struct {
	UserID      string          `json:"userId" binding:"required"`
	PanelIndex  int             `json:"panelIndex"`
	ChoicesPath json.RawMessage `json:"choicesPath"`
}

type generateContinuationRequest struct {
	ChoiceID       string                `json:"choiceId" binding:"required"`
	SelectedBranch string                `json:"selectedBranch" binding:"required"`
	Context        service.ChoiceContext `json:"context"`
}

type validateChoiceRequest struct {
	ChoiceID       string `json:"choiceId"`
	SelectedBranch string `json:"selectedBranch"`
}

type generateSketchRequest struct {
	Prompt  string `json:"prompt" binding:"required"`
	Style   string `json:"style"`
	Mood    string `json:"mood"`
	PanelID *int   `json:"panelId"`
}

// --- Response structs ---

type pageContextResponse struct {
	PageID          string                   `json:"pageId"`
	Status          models.OrchestratorState `json:"status"`
	Context         *models.AgentContext     `json:"context"`
	FormattedPrompt string                   `json:"formattedPrompt"`
}

type validateChoiceResponse struct {
	Valid bool `json:"valid"`
}

type createChapterResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ChapterID   string `json:"chapterId,omitempty"`
	ChapterPath string `json:"chapterPath,omitempty"`
}
