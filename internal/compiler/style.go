package compiler

// DefaultStyleID — стиль по умолчанию для новых глав.
const DefaultStyleID = "grave_black_ink"

// Style описывает визуальный пресет главы: префикс для image-промптов
// и негативный промпт, отсекающий нежелательные артефакты.
type Style struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PromptPrefix   string `json:"prompt_prefix"`
	NegativePrompt string `json:"negative_prompt"`
}

// Пресеты соответствуют стилям, доступным в админке.
var styles = map[string]Style{
	"grave_black_ink": {
		ID:             "grave_black_ink",
		Name:           "Grave Black Ink",
		PromptPrefix:   "black ink webtoon panel, heavy blacks, harsh crosshatching, grim atmosphere, high contrast",
		NegativePrompt: "bright colors, cheerful, clean lines, chibi, watermark, text",
	},
	"storyboard_sketch": {
		ID:             "storyboard_sketch",
		Name:           "Storyboard Sketch",
		PromptPrefix:   "rough storyboard sketch, loose pencil lines, gestural figures, cinematic framing",
		NegativePrompt: "polished render, color, photorealism, watermark, text",
	},
	"clean_manhwa_shade": {
		ID:             "clean_manhwa_shade",
		Name:           "Clean Manhwa Shade",
		PromptPrefix:   "clean manhwa style webtoon panel, cel shading, sharp lineart, muted palette",
		NegativePrompt: "sketchy lines, noise, oversaturation, watermark, text",
	},
	"fog_horror": {
		ID:             "fog_horror",
		Name:           "Fog Horror",
		PromptPrefix:   "horror webtoon panel, dense fog, obscured silhouettes, desaturated tones, creeping dread",
		NegativePrompt: "bright daylight, comedy, clean visibility, watermark, text",
	},
	"grit_realism": {
		ID:             "grit_realism",
		Name:           "Grit Realism",
		PromptPrefix:   "realistic gritty webtoon panel, textured surfaces, mud and grime detail, naturalistic lighting",
		NegativePrompt: "stylized, anime proportions, vibrant colors, watermark, text",
	},
	"mythic_minimal": {
		ID:             "mythic_minimal",
		Name:           "Mythic Minimal",
		PromptPrefix:   "minimalist mythic webtoon panel, sparse composition, bold negative space, symbolic imagery",
		NegativePrompt: "clutter, busy backgrounds, fine detail, watermark, text",
	},
}

// StyleByID возвращает пресет стиля по идентификатору.
func StyleByID(id string) (Style, bool) {
	s, ok := styles[id]
	return s, ok
}

// IsValidStyle сообщает, известен ли идентификатор стиля.
func IsValidStyle(id string) bool {
	_, ok := styles[id]
	return ok
}
