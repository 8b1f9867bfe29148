package models

// PriorPage — проекция ранее одобренной страницы для контекста агента.
type PriorPage struct {
	PageNumber    int            `db:"page_number" json:"pageNumber"`
	NarrationText string         `db:"narration_text" json:"narrationText"`
	Dialogue      []DialogueLine `db:"-" json:"dialogue"`
}

// CurrentPageInfo — сведения о странице, для которой собирается контекст.
type CurrentPageInfo struct {
	PageNumber int    `json:"pageNumber"`
	UserInput  string `json:"userInput"`
}

// AgentContext — весь материал, который нужен агенту для написания
// следующего куска контента страницы.
type AgentContext struct {
	CanonicalRefs   []CanonicalReference `json:"canonicalRefs"`
	PriorPages      []PriorPage          `json:"priorPages"`
	CurrentPage     CurrentPageInfo      `json:"currentPage"`
	ChapterMetadata ChapterMetadata      `json:"chapterMetadata"`
}
