package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"worthy-server/internal/models"
)

// Имена файлов бандла главы.
const (
	scriptFileName     = "script.json"
	captureFileName    = "capture.md"
	dialogueFileName   = "dialogue.md"
	storyboardFileName = "storyboard_prompts.json"
	continuityFileName = "continuity_report.md"
	manifestFileName   = "manifest.json"
	buildDirName       = "build"
)

// ChapterBundle — собранные артефакты главы перед записью на диск.
type ChapterBundle struct {
	ChapterID         string
	Title             string
	Description       string
	Script            *ChapterScript
	DialogueMD        string
	StoryboardPrompts []StoryboardPrompt
	ContinuityReport  string
}

// ImageStats — итоги батча генерации изображений для манифеста.
type ImageStats struct {
	Succeeded   int `json:"succeeded"`
	TotalPanels int `json:"total_panels"`
}

// Manifest описывает содержимое бандла главы. Статусный эндпоинт
// админки читает его как источник истины о сборке.
type Manifest struct {
	ChapterID    string            `json:"chapter_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"created_at"`
	PanelCount   int               `json:"panel_count"`
	ChoicePoints int               `json:"choice_points"`
	StyleID      string            `json:"style_id"`
	Files        map[string]string `json:"files"`
	Images       *ImageStats       `json:"images,omitempty"`
}

// BundleStore пишет и читает бандлы глав в директории chaptersDir.
type BundleStore struct {
	chaptersDir string
}

// NewBundleStore создает хранилище бандлов.
func NewBundleStore(chaptersDir string) *BundleStore {
	return &BundleStore{chaptersDir: chaptersDir}
}

// BundlePath возвращает путь к директории бандла главы.
func (s *BundleStore) BundlePath(chapterID string) string {
	return filepath.Join(s.chaptersDir, chapterID)
}

// Write записывает бандл главы на диск и возвращает путь к нему.
func (s *BundleStore) Write(bundle *ChapterBundle) (string, error) {
	bundlePath := s.BundlePath(bundle.ChapterID)
	buildPath := filepath.Join(bundlePath, buildDirName)
	if err := os.MkdirAll(buildPath, 0o755); err != nil {
		return "", fmt.Errorf("ошибка создания директории бандла: %w", err)
	}

	scriptJSON, err := json.MarshalIndent(bundle.Script, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сценария: %w", err)
	}
	storyboardJSON, err := json.MarshalIndent(bundle.StoryboardPrompts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации storyboard-промптов: %w", err)
	}

	files := map[string][]byte{
		scriptFileName:     scriptJSON,
		captureFileName:    []byte(GenerateCaptureMD(bundle.Script)),
		dialogueFileName:   []byte(bundle.DialogueMD),
		storyboardFileName: storyboardJSON,
		continuityFileName: []byte(bundle.ContinuityReport),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(bundlePath, name), data, 0o644); err != nil {
			return "", fmt.Errorf("ошибка записи %s: %w", name, err)
		}
	}

	manifest := &Manifest{
		ChapterID:    bundle.ChapterID,
		Title:        bundle.Title,
		Description:  bundle.Description,
		CreatedAt:    time.Now().UTC(),
		PanelCount:   len(bundle.Script.Panels),
		ChoicePoints: len(bundle.Script.ChoicePoints),
		StyleID:      bundle.Script.StyleID,
		Files: map[string]string{
			"script":             scriptFileName,
			"capture":            captureFileName,
			"dialogue":           dialogueFileName,
			"storyboard_prompts": storyboardFileName,
			"continuity_report":  continuityFileName,
		},
	}
	if err := s.WriteManifest(bundle.ChapterID, manifest); err != nil {
		return "", err
	}

	return bundlePath, nil
}

// ReadManifest читает манифест бандла. Если бандла нет,
// возвращает models.ErrChapterNotFound.
func (s *BundleStore) ReadManifest(chapterID string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.BundlePath(chapterID), buildDirName, manifestFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrChapterNotFound
		}
		return nil, fmt.Errorf("ошибка чтения манифеста главы %s: %w", chapterID, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("ошибка разбора манифеста главы %s: %w", chapterID, err)
	}
	return &manifest, nil
}

// WriteManifest перезаписывает манифест бандла (используется и для
// обновления итогов батча изображений после сборки).
func (s *BundleStore) WriteManifest(chapterID string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации манифеста: %w", err)
	}
	path := filepath.Join(s.BundlePath(chapterID), buildDirName, manifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи манифеста: %w", err)
	}
	return nil
}

// GenerateCaptureMD собирает человекочитаемый capture.md из сценария.
func GenerateCaptureMD(script *ChapterScript) string {
	var b strings.Builder

	title := script.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "# %s\n\n", script.ChapterID)
	fmt.Fprintf(&b, "**Title:** %s\n", title)
	fmt.Fprintf(&b, "**Style:** %s\n", script.StyleID)
	fmt.Fprintf(&b, "**Panels:** %d\n", len(script.Panels))
	fmt.Fprintf(&b, "**Choice Points:** %d\n\n---\n\n", len(script.ChoicePoints))

	for _, panel := range script.Panels {
		fmt.Fprintf(&b, "## Panel %d: %s\n", panel.PanelID, panel.Location)
		fmt.Fprintf(&b, "**Shot:** %s\n\n", panel.Shot)

		b.WriteString("**Visual:**\n")
		for _, note := range panel.VisualNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")

		if len(panel.Characters) > 0 {
			fmt.Fprintf(&b, "**Characters:** %s\n\n", strings.Join(panel.Characters, ", "))
		}

		if len(panel.Dialogue) > 0 {
			b.WriteString("**Dialogue:**\n")
			for _, line := range panel.Dialogue {
				fmt.Fprintf(&b, "- **%s:** %q\n", line.Speaker, line.Text)
			}
			b.WriteString("\n")
		}

		if len(panel.SFX) > 0 {
			fmt.Fprintf(&b, "**SFX:** %s\n\n", strings.Join(panel.SFX, " | "))
		}
		if panel.Thought != "" {
			fmt.Fprintf(&b, "**Thought:** %q\n\n", panel.Thought)
		}
		if len(panel.OnPanelText) > 0 {
			b.WriteString("**On-Panel Text:**\n")
			for _, text := range panel.OnPanelText {
				fmt.Fprintf(&b, "- %s\n", text)
			}
			b.WriteString("\n")
		}
		if panel.Notes != "" {
			fmt.Fprintf(&b, "**Notes:** %s\n\n", panel.Notes)
		}

		b.WriteString("---\n\n")
	}

	if len(script.ChoicePoints) > 0 {
		b.WriteString("## Choice Points\n\n")
		for _, choice := range script.ChoicePoints {
			fmt.Fprintf(&b, "### Panel %d\n", choice.PanelID)
			fmt.Fprintf(&b, "**Q:** %s\n\n", choice.Question)
			for i, opt := range choice.Choices {
				fmt.Fprintf(&b, "%d. %q → Panel %d\n", i+1, opt.Text, opt.LeadsToPanel)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
