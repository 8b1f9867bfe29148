package compiler

import (
	"fmt"
	"regexp"
	"strings"
)

// Границы количества панелей в главе.
const (
	MinPanelCount     = 10
	MaxPanelCount     = 100
	DefaultPanelCount = 30
)

// CreateChapterRequest — запрос админки на сборку новой главы.
type CreateChapterRequest struct {
	ID          string `json:"id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Narrative   string `json:"narrative" binding:"required"`
	Description string `json:"description"`
	Panels      int    `json:"panels"`
	Style       string `json:"style"`
	SkipImages  bool   `json:"skip_images"`
}

// ChapterPlan — структурированный план главы, построенный из нарратива.
type ChapterPlan struct {
	ChapterID     string   `json:"chapter_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	StyleID       string   `json:"style_id"`
	PanelCount    int      `json:"panel_count"`
	UserNarrative string   `json:"user_narrative"`
	KeyBeats      []string `json:"key_beats"`
	PacingNotes   string   `json:"pacing_notes"`
	CharacterList []string `json:"character_list"`
}

var chapterIDCleaner = regexp.MustCompile(`[^a-z0-9_]`)

// Sanitize нормализует запрос: приводит идентификатор к [a-z0-9_],
// обрезает заголовок и нарратив, зажимает число панелей и стиль.
func (r *CreateChapterRequest) Sanitize() {
	r.ID = chapterIDCleaner.ReplaceAllString(strings.ToLower(r.ID), "")
	if len(r.Title) > 100 {
		r.Title = r.Title[:100]
	}
	if len(r.Narrative) > 1000 {
		r.Narrative = r.Narrative[:1000]
	}
	if r.Panels == 0 {
		r.Panels = DefaultPanelCount
	}
	if r.Panels < MinPanelCount {
		r.Panels = MinPanelCount
	}
	if r.Panels > MaxPanelCount {
		r.Panels = MaxPanelCount
	}
	if !IsValidStyle(r.Style) {
		r.Style = DefaultStyleID
	}
}

// NewChapterPlan строит план главы: извлекает персонажей и ключевые биты
// из нарратива и считает заметки по пейсингу.
func NewChapterPlan(req CreateChapterRequest) ChapterPlan {
	beats := extractBeats(req.Narrative)
	description := req.Description
	if description == "" {
		description = "Chapter plan"
	}
	return ChapterPlan{
		ChapterID:     req.ID,
		Title:         req.Title,
		Description:   description,
		StyleID:       req.Style,
		PanelCount:    req.Panels,
		UserNarrative: req.Narrative,
		KeyBeats:      beats,
		PacingNotes:   pacingNotes(req.Panels, len(beats)),
		CharacterList: extractCharacters(req.Narrative),
	}
}

// extractCharacters извлекает вероятные имена персонажей: слова с заглавной
// буквы длиннее двух символов. MC включается всегда, итог ограничен десятью.
func extractCharacters(narrative string) []string {
	seen := make(map[string]struct{})
	var chars []string

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		chars = append(chars, name)
	}

	for _, word := range strings.Fields(narrative) {
		first := rune(word[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		clean := strings.Trim(word, `,.:;!?'"`)
		if len(clean) > 2 && clean != "The" {
			add(clean)
		}
	}
	add("MC")

	if len(chars) > 10 {
		chars = chars[:10]
	}
	return chars
}

// Ключевые моменты, которые ищем в нарративе: действия и канонические маркеры.
var beatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)wakes? up`),
	regexp.MustCompile(`(?i)finds? `),
	regexp.MustCompile(`(?i)discovers? `),
	regexp.MustCompile(`(?i)chooses? `),
	regexp.MustCompile(`(?i)escapes? `),
	regexp.MustCompile(`(?i)meets? `),
	regexp.MustCompile(`(?i)fights? `),
	regexp.MustCompile(`(?i)reveals? `),
	regexp.MustCompile(`(?i)cliffhanger`),
	regexp.MustCompile(`(?i)horn`),
	regexp.MustCompile(`(?i)scouts`),
	regexp.MustCompile(`(?i)grave`),
	regexp.MustCompile(`(?i)mark`),
	regexp.MustCompile(`(?i)rash`),
}

func extractBeats(narrative string) []string {
	var beats []string
	for _, pattern := range beatPatterns {
		if match := pattern.FindString(narrative); match != "" {
			beats = append(beats, match)
		}
	}
	return beats
}

func pacingNotes(panelCount, beatCount int) string {
	if beatCount < 1 {
		beatCount = 1
	}
	return fmt.Sprintf(
		"Average %d panels per major beat. Allocate more panels to action/revelation moments, fewer to exposition.",
		panelCount/beatCount,
	)
}
