package compiler

import (
	"fmt"
	"strings"

	"worthy-server/internal/models"
)

// Допустимые типы кадров панели.
var validShots = map[string]struct{}{
	"wide":         {},
	"medium":       {},
	"close":        {},
	"action_close": {},
	"insert":       {},
	"full_black":   {},
}

// ChapterScript — полный сценарий главы, который возвращает модель.
type ChapterScript struct {
	ChapterID    string        `json:"chapter_id"`
	Title        string        `json:"title"`
	StyleID      string        `json:"style_id"`
	Panels       []Panel       `json:"panels"`
	ChoicePoints []ChoicePoint `json:"choice_points"`
}

// Panel — одна панель вебтуна.
type Panel struct {
	PanelID     int                   `json:"panel_id"`
	Shot        string                `json:"shot"`
	Location    string                `json:"location"`
	VisualNotes []string              `json:"visual_notes"`
	Characters  []string              `json:"characters"`
	Dialogue    []models.DialogueLine `json:"dialogue"`
	SFX         []string              `json:"sfx"`
	Thought     string                `json:"thought,omitempty"`
	OnPanelText []string              `json:"on_panel_text,omitempty"`
	Notes       string                `json:"notes,omitempty"`
}

// ChoicePoint — точка выбора читателя, привязанная к панели.
type ChoicePoint struct {
	PanelID  int            `json:"panel_id"`
	Question string         `json:"question"`
	Choices  []ChoiceOption `json:"choices"`
}

// ChoiceOption — один вариант выбора с переходом на панель.
type ChoiceOption struct {
	Text         string `json:"text"`
	LeadsToPanel int    `json:"leads_to_panel"`
}

// StoryboardPrompt — image-промпт для одной панели.
type StoryboardPrompt struct {
	PanelID  int    `json:"panel_id"`
	Shot     string `json:"shot"`
	Location string `json:"location"`
	Prompt   string `json:"prompt"`
}

// ValidationResult — результат проверки сценария. Errors блокируют сборку
// бандла, Warnings только логируются.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateScript проверяет сценарий главы: границы числа панелей,
// обязательные поля панелей, ссылки точек выбора и читаемость текста.
func ValidateScript(script *ChapterScript) ValidationResult {
	result := ValidationResult{Valid: true}

	addError := func(format string, args ...interface{}) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}
	addWarning := func(format string, args ...interface{}) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	if script.ChapterID == "" {
		addError("сценарий без chapter_id")
	}
	if len(script.Panels) < MinPanelCount || len(script.Panels) > MaxPanelCount {
		addError("число панелей %d вне допустимых границ [%d, %d]", len(script.Panels), MinPanelCount, MaxPanelCount)
	}

	panelIDs := make(map[int]struct{}, len(script.Panels))
	for _, panel := range script.Panels {
		if _, dup := panelIDs[panel.PanelID]; dup {
			addError("панель %d: дублирующийся panel_id", panel.PanelID)
		}
		panelIDs[panel.PanelID] = struct{}{}

		if _, ok := validShots[panel.Shot]; !ok {
			addError("панель %d: неизвестный тип кадра %q", panel.PanelID, panel.Shot)
		}
		if panel.Location == "" {
			addError("панель %d: пустая локация", panel.PanelID)
		}
		if len(panel.VisualNotes) == 0 {
			addError("панель %d: нет визуальных заметок", panel.PanelID)
		}

		for _, line := range panel.Dialogue {
			if words := len(strings.Fields(line.Text)); words > 18 {
				addWarning("панель %d: реплика %s слишком длинная (%d слов, рекомендовано < 18)", panel.PanelID, line.Speaker, words)
			}
		}
		for _, text := range panel.OnPanelText {
			if words := len(strings.Fields(text)); words > 20 {
				addWarning("панель %d: надпись на панели слишком длинная (%d слов)", panel.PanelID, words)
			}
		}
	}

	for _, choice := range script.ChoicePoints {
		if _, ok := panelIDs[choice.PanelID]; !ok {
			addError("точка выбора ссылается на несуществующую панель %d", choice.PanelID)
		}
		if len(choice.Choices) < 2 {
			addError("точка выбора на панели %d: меньше двух вариантов", choice.PanelID)
		}
		for _, opt := range choice.Choices {
			if _, ok := panelIDs[opt.LeadsToPanel]; !ok {
				addError("вариант выбора на панели %d ведет на несуществующую панель %d", choice.PanelID, opt.LeadsToPanel)
			}
		}
	}

	return result
}
