package tts

import (
	"regexp"
	"strings"
)

// normalizeTextForTTS strips formatting that reads badly when spoken aloud:
// markdown markers, emojis and runs of whitespace.
func normalizeTextForTTS(text string) string {
	for _, marker := range []string{"**", "*", "__", "~~", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = removeEmojiRegex.ReplaceAllString(text, "")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

var (
	removeEmojiRegex    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)
