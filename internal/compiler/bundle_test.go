package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worthy-server/internal/models"
)

func TestBundleStore_WriteAndReadManifest(t *testing.T) {
	store := NewBundleStore(t.TempDir())
	script := validScript(12)
	script.ChoicePoints = []ChoicePoint{{
		PanelID:  3,
		Question: "Run or hide?",
		Choices: []ChoiceOption{
			{Text: "Run", LeadsToPanel: 4},
			{Text: "Hide", LeadsToPanel: 5},
		},
	}}

	bundlePath, err := store.Write(&ChapterBundle{
		ChapterID:         "ch01_opening",
		Title:             "The Grave",
		Description:       "Opening chapter",
		Script:            script,
		DialogueMD:        "## Panel 1\ndialogue variants",
		StoryboardPrompts: []StoryboardPrompt{{PanelID: 1, Shot: "wide", Location: "mass_grave", Prompt: "ink panel"}},
		ContinuityReport:  "## Continuity Report: ch01_opening",
	})
	require.NoError(t, err)

	for _, name := range []string{scriptFileName, captureFileName, dialogueFileName, storyboardFileName, continuityFileName} {
		_, statErr := os.Stat(filepath.Join(bundlePath, name))
		assert.NoError(t, statErr, name)
	}

	manifest, err := store.ReadManifest("ch01_opening")
	require.NoError(t, err)
	assert.Equal(t, "ch01_opening", manifest.ChapterID)
	assert.Equal(t, "The Grave", manifest.Title)
	assert.Equal(t, 12, manifest.PanelCount)
	assert.Equal(t, 1, manifest.ChoicePoints)
	assert.Equal(t, "grave_black_ink", manifest.StyleID)
	assert.Equal(t, scriptFileName, manifest.Files["script"])
	assert.Nil(t, manifest.Images)
}

func TestBundleStore_ReadManifest_NotFound(t *testing.T) {
	store := NewBundleStore(t.TempDir())

	_, err := store.ReadManifest("ch99_missing")

	assert.ErrorIs(t, err, models.ErrChapterNotFound)
}

func TestBundleStore_WriteManifest_UpdatesImageStats(t *testing.T) {
	store := NewBundleStore(t.TempDir())
	_, err := store.Write(&ChapterBundle{
		ChapterID: "ch01_opening",
		Title:     "The Grave",
		Script:    validScript(10),
	})
	require.NoError(t, err)

	manifest, err := store.ReadManifest("ch01_opening")
	require.NoError(t, err)
	manifest.Images = &ImageStats{Succeeded: 8, TotalPanels: 10}
	require.NoError(t, store.WriteManifest("ch01_opening", manifest))

	updated, err := store.ReadManifest("ch01_opening")
	require.NoError(t, err)
	require.NotNil(t, updated.Images)
	assert.Equal(t, 8, updated.Images.Succeeded)
	assert.Equal(t, 10, updated.Images.TotalPanels)
}

func TestGenerateCaptureMD(t *testing.T) {
	script := validScript(10)
	script.Panels[0].SFX = []string{"THUD", "BZZZ"}
	script.Panels[0].Thought = "Not again."
	script.Panels[0].OnPanelText = []string{"DAY 1"}
	script.ChoicePoints = []ChoicePoint{{
		PanelID:  2,
		Question: "Run or hide?",
		Choices: []ChoiceOption{
			{Text: "Run", LeadsToPanel: 3},
			{Text: "Hide", LeadsToPanel: 4},
		},
	}}

	capture := GenerateCaptureMD(script)

	assert.Contains(t, capture, "# ch01_opening")
	assert.Contains(t, capture, "**Title:** The Grave")
	assert.Contains(t, capture, "**Panels:** 10")
	assert.Contains(t, capture, "**Choice Points:** 1")
	assert.Contains(t, capture, "## Panel 1: mass_grave")
	assert.Contains(t, capture, "**Shot:** wide")
	assert.Contains(t, capture, "**Characters:** MC")
	assert.Contains(t, capture, `- **MC:** "Short line."`)
	assert.Contains(t, capture, "**SFX:** THUD | BZZZ")
	assert.Contains(t, capture, `**Thought:** "Not again."`)
	assert.Contains(t, capture, "- DAY 1")
	assert.Contains(t, capture, "## Choice Points")
	assert.Contains(t, capture, "**Q:** Run or hide?")
	assert.Contains(t, capture, `1. "Run" → Panel 3`)
}

func TestGenerateCaptureMD_UntitledScript(t *testing.T) {
	script := validScript(10)
	script.Title = ""

	capture := GenerateCaptureMD(script)

	assert.Contains(t, capture, "**Title:** (untitled)")
}
