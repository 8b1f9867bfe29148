package compiler

import (
	"fmt"
	"strings"
)

// Якоря визуальной консистентности, подставляемые в каждый промпт.
const consistencyAnchors = `
MC: early-20s, lean, mud-streaked, tired eyes, torn cloth wrap, faint rash-like mark on forearm.
Environment: mud, flies, smoke line on horizon, triage tents, hostile stares, distant horn.
Tone: grim tension with subtle nervous humor in side character expressions only.
Mark detail: faint rash-like branching ring on forearm; subtle redness; only faint pulse/heat cue.
`

// Ростер персонажей: модель не должна придумывать новые имена.
const characterRoster = `
CORE CHARACTERS:
- MC: Main protagonist, early 20s, marked by the Body Pillar, discovers hidden powers
- ELDER: Village elder, mentors MC, knows more than she reveals about the Pillars
- RIVAL: Ambitious young warrior, challenges MC, has dark secrets and goals
- SCAVENGER_1: Pragmatic survivor from the mass grave, trusts MC
- SCAVENGER_2: Cynical salvager, questions everything, comic relief

SETTING-SPECIFIC:
- GUARD_CAPTAIN: Village guard leader, suspicious of outsiders
- MERCHANT: Trader passing through, brings news from beyond
- MARK_BEARER_ELDER: Ancient figure who shows MC the truth about the Mark

USE ONLY THESE NAMES. Do not create new character names.
Maintain consistent appearances, motivations, and relationships.
`

// Системные сообщения пяти стадий пайплайна.
const (
	plotSystemPrompt       = "You are a webtoon narrative architect. Generate detailed chapter plots as JSON."
	scriptSystemPrompt     = "You are a webtoon script validator. Validate and refine chapter scripts as JSON."
	dialogueSystemPrompt   = "You are a webtoon dialogue writer. Create punchy, authentic character dialogue."
	storyboardSystemPrompt = "You are a storyboard prompt engineer for visual consistency. Generate image prompts as JSON."
	continuitySystemPrompt = "You are a webtoon quality assurance reviewer. Review for narrative consistency and canon."
)

// PromptPack — пять пользовательских промптов пайплайна главы.
type PromptPack struct {
	PlotPrompt       string `json:"plot_prompt"`
	ScriptPrompt     string `json:"script_prompt"`
	DialoguePrompt   string `json:"dialogue_prompt"`
	StoryboardPrompt string `json:"storyboard_prompt"`
	ContinuityPrompt string `json:"continuity_prompt"`
}

// BuildPromptPack собирает все промпты пайплайна. canon — текст активных
// канонических референсов, он играет роль главного источника истины.
func BuildPromptPack(plan ChapterPlan, canon string) PromptPack {
	style, ok := StyleByID(plan.StyleID)
	if !ok {
		style, _ = StyleByID(DefaultStyleID)
	}
	return PromptPack{
		PlotPrompt:       buildPlotPrompt(plan, canon),
		ScriptPrompt:     buildScriptPrompt(plan, style, canon),
		DialoguePrompt:   buildDialoguePrompt(plan, canon),
		StoryboardPrompt: buildStoryboardPrompt(style, canon),
		ContinuityPrompt: buildContinuityPrompt(plan, canon),
	}
}

func buildPlotPrompt(plan ChapterPlan, canon string) string {
	return fmt.Sprintf(`You are a webtoon narrative architect for WORTHY.

MASTER REFERENCE - WORTHY CANON (key source of truth):
%s

Chapter: %s - %s
Panels needed: %d
User narrative goal: %s
Key beats: %s
Pacing: %s

%s

%s

INSTRUCTIONS:
1. Use the canon above as your primary source of truth for worldbuilding, power system, and lore
2. Align the user's narrative with the overall WORTHY arc (Season 1-3)
3. Respect the core Five Pillars system (Core, Body, Mind, Flow, Domain/Intent)
4. The Mark is subtle and tied to the Filter - seed hints but don't explain
5. Tone is grim tension with nervous humor (never grimdark, never comedy)
6. NO exposition dumps - weave lore as dialogue/gossip fragments only
7. Character names MUST come from the roster above
8. Maintain visual consistency: mud, flies, triage, hostile stares, survival context

REQUIRED OUTPUT FORMAT: Valid JSON object (no markdown, no code blocks, just raw JSON)
{
  "chapter_id": "%s",
  "title": "%s",
  "style_id": "%s",
  "panels": [
    {
      "panel_id": 1,
      "shot": "wide",
      "location": "training_ground",
      "visual_notes": ["Description of visual", "Another detail"],
      "characters": ["MC", "ELDER"],
      "dialogue": [
        {"speaker": "MC", "text": "Short dialogue line."},
        {"speaker": "ELDER", "text": "Response here."}
      ],
      "sfx": ["Sound effect"]
    }
  ],
  "choice_points": []
}

Generate exactly %d panels with consistent narrative flow that honors WORTHY canon.
Each panel must have all required fields.
Dialogue must be punchy (< 18 words per bubble).`,
		canon,
		plan.ChapterID, plan.Title,
		plan.PanelCount,
		plan.UserNarrative,
		joinOrNone(plan.KeyBeats),
		plan.PacingNotes,
		characterRoster,
		consistencyAnchors,
		plan.ChapterID, plan.Title, plan.StyleID,
		plan.PanelCount,
	)
}

func buildScriptPrompt(plan ChapterPlan, style Style, canon string) string {
	return fmt.Sprintf(`You are a webtoon script validator and refiner for WORTHY.

MASTER REFERENCE - WORTHY CANON (key source of truth):
%s

Chapter: %s
Style: %s - %s
Expected panels: %d

%s

%s

INSTRUCTIONS:
1. Validate against WORTHY canon (Five Pillars, Mark mechanics, Filter lore)
2. Ensure consistent character voices from the roster
3. Maintain grim + nervous humor tone (never grimdark)
4. Seed power system references but don't lecture
5. The Mark should appear as subtle rash/heat cues, not explanations
6. Weave worldbuilding as environment details + gossip, not exposition

REQUIRED OUTPUT FORMAT: Valid JSON object (no markdown, no code blocks, just raw JSON)
{
  "chapter_id": "%s",
  "title": "%s",
  "style_id": "%s",
  "panels": [
    {
      "panel_id": 1,
      "shot": "wide",
      "location": "location_name",
      "visual_notes": ["Visual detail 1", "Visual detail 2"],
      "characters": ["MC", "ELDER"],
      "dialogue": [
        {"speaker": "MC", "text": "Punchy dialogue under 18 words."},
        {"speaker": "ELDER", "text": "Response."}
      ],
      "sfx": ["sound_effect"]
    }
  ],
  "choice_points": []
}

Rules:
1. Exactly %d panels total
2. Each panel MUST have: panel_id, shot, location, visual_notes[], characters[], dialogue[], sfx[]
3. Dialogue MUST be: array of {speaker, text} objects, each text < 18 words
4. shot values: wide, medium, close, action_close, insert, full_black
5. Location: descriptive location name
6. visual_notes: array of 1-3 visual descriptions
7. characters: array of character names (ONLY from roster above)
8. sfx: array of sound effects (can be empty)

Generate the complete chapter honoring WORTHY canon.`,
		canon,
		plan.ChapterID,
		style.ID, style.Name,
		plan.PanelCount,
		characterRoster,
		consistencyAnchors,
		plan.ChapterID, plan.Title, style.ID,
		plan.PanelCount,
	)
}

func buildDialoguePrompt(plan ChapterPlan, canon string) string {
	return fmt.Sprintf(`You are a webtoon dialogue specialist for WORTHY.

MASTER REFERENCE - WORTHY CANON (key source of truth):
%s

Chapter: %s

%s

Your task:
1. Review existing panel dialogues and ensure they match character voices from WORTHY canon
2. Generate 3 variants for each dialogue bubble (short/natural/punchy)
3. Flag any bubbles > 18 words as "unreadable in webtoon format"
4. Recommend final variant based on character voice, pacing, readability
5. Ensure character voices are distinct, consistent, and honor the canon arc

Use ONLY the characters from the roster above.
Maintain each character's speech patterns and personality as defined in canon.
Grim tone with nervous humor in small moments (never forced comedy).

Output as markdown with structure:
## Panel [ID]
### Dialogue 1: [speaker]
- Variant A: [text]
- Variant B: [text]
- Variant C: [text]
- **Final:** [recommended]
- **Notes:** [pacing cue or character voice justification]`,
		canon,
		plan.ChapterID,
		characterRoster,
	)
}

func buildStoryboardPrompt(style Style, canon string) string {
	return fmt.Sprintf(`You are a storyboard prompt engineer for Pollinations.ai image generation.

MASTER REFERENCE - WORTHY CANON (key source of truth for visual language):
%s

Style preset: %s - %s

For EACH panel, generate an image prompt following this structure:

%s

Visual Language Guidelines from WORTHY Canon:
- Mass grave scenes: heavy blacks, tight claustrophobic crops, sudden wide reveals
- The Mark: subtle red/vein branching pattern on forearm; one panel of heat haze or pulse SFX
- Flow mastery: clean breath SFX, smooth motion lines, "too efficient" contrast
- Mind mastery: small eye close-ups, micro-pauses, pattern callouts
- Domain/Intent: panel borders subtly tilt or "rule" overlays appear (later chapters)
- Filter foreshadow: whispered myths, refracted speech bubbles in old texts

Include in each prompt:
- Shot type (full_black, close, medium, wide, insert, action_close)
- Location details
- Character positioning and expression (honoring roster descriptions)
- Mood and lighting cues aligned with tone (grim + nervous humor)
- CONSISTENCY ANCHORS:
%s

AVOID:
%s

Output as JSON array:
[
  {
    "panel_id": 1,
    "shot": "wide",
    "location": "mass_grave",
    "prompt": "[full generated prompt for Pollinations.ai honoring WORTHY visual language]"
  }
]`,
		canon,
		style.ID, style.Name,
		style.PromptPrefix,
		consistencyAnchors,
		style.NegativePrompt,
	)
}

func buildContinuityPrompt(plan ChapterPlan, canon string) string {
	return fmt.Sprintf(`You are a continuity quality-assurance reviewer for WORTHY chapter scripts.

MASTER REFERENCE - WORTHY CANON (key source of truth):
%s

Chapter: %s

%s

Review the complete chapter for:
1. CANON ALIGNMENT: Does this honor the WORTHY canon (Pillars, Mark mechanics, Filter lore)?
2. Character consistency: Do names, appearances, and motivations match the roster + canon?
3. Location consistency: Do geography and visual details fit the world?
4. Timeline logic: Do character actions make sense in sequence?
5. Tone consistency: Is it grim + nervous humor (not grimdark, not comedy)?
6. Mark references: Does the rash/heat cue appear subtly (not explained)?
7. Dialogue naturalness: No exposition dumps? Conversational and punchy?
8. Visual variety: Shots not repetitive? Good shot flow?
9. Pacing: Does momentum drive toward the user's narrative goal?
10. Arc alignment: Does this advance the Season 1-3 overall arc?

Output as markdown report:
## Continuity Report: %s

### Canon Alignment
- [findings against Five Pillars, Mark, Filter, power system, tone]

### Character Consistency
- [findings on roster adherence, voices, motivations]

### Location & World
- [findings on geography, environment details, consistency]

### Timeline & Logic
- [findings on action sequence, causality]

### Tone & Voice
- [findings on grim + humor balance, character voices]

### Mark & Power System
- [findings on how power/Mark is referenced (seeded not lectured?)]

### Dialogue & Exposition
- [findings on naturalness, info-dump check]

### Critical Issues Found
- [list of violations that must be fixed]

### Recommendations
- [suggestions to strengthen alignment with canon]`,
		canon,
		plan.ChapterID,
		characterRoster,
		plan.ChapterID,
	)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none detected)"
	}
	return strings.Join(items, ", ")
}
