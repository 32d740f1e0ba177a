package pipeline

import "strings"

// MaxPromptWords caps each prompt descriptor; SDXL-style encoders ignore
// tokens past roughly this point, so excess is truncated, never rejected.
const MaxPromptWords = 55

// Fixed quality/style suffixes used when the enhancement service returns
// something unusable and a fallback prompt has to be synthesized locally.
const (
	fallbackQualitySuffix = "photorealistic, 8K resolution, ultra HD, masterpiece, RAW photo"
	fallbackStyleLine     = "sharp focus, detailed textures, soft natural light, professional photography"
)

// SplitPrompt divides enhanced text into a primary and secondary descriptor
// at the first line break, each independently capped at MaxPromptWords.
func SplitPrompt(text string) (primary, secondary string) {
	lines := strings.SplitN(text, "\n", 2)
	primary = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		secondary = strings.TrimSpace(strings.ReplaceAll(lines[1], "\n", " "))
	}
	return truncateWords(primary), truncateWords(secondary)
}

func truncateWords(text string) string {
	words := strings.Fields(text)
	if len(words) <= MaxPromptWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:MaxPromptWords], " ")
}

// usableEnhancement reports whether the enhancement response has at least
// two non-empty, non-bulleted lines. Models occasionally answer with bullet
// lists or a bare restatement; those responses are discarded in favor of the
// fallback.
func usableEnhancement(text string) bool {
	usable := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isBulleted(line) {
			continue
		}
		usable++
		if usable >= 2 {
			return true
		}
	}
	return false
}

func isBulleted(line string) bool {
	for _, prefix := range []string{"-", "*", "•", "#"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// fallbackPrompt composes a deterministic two-line prompt from the raw
// request plus the fixed quality and style suffixes.
func fallbackPrompt(request string) string {
	return strings.TrimSpace(request) + ", " + fallbackQualitySuffix + "\n" + fallbackStyleLine
}
