package compare

import (
	"regexp"
	"strings"
)

const maxQueryWords = 7

var (
	conditionWords = regexp.MustCompile(`(?i)\b(?:refurbished|excellent|very good|good|certified|like new|open box|prd|oem|genuine|original|grade a|grade b)\b`)
	punctuation    = regexp.MustCompile(`[^\w\s.\-]`)
)

// CleanForSearch turns a marketplace title into a short new-retail search query.
func CleanForSearch(title string) string {
	clean := conditionWords.ReplaceAllString(title, " ")
	clean = punctuation.ReplaceAllString(clean, " ")
	words := strings.Fields(clean)
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	return strings.Join(words, " ")
}
