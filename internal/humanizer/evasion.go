package humanizer

import "strings"

// invisibleRate is the probability of inserting a zero-width space per document.
const invisibleRate = 0.001

// VaryPunctuation replaces spaced hyphens with an em or en dash (one choice for
// the whole text) and, with probability 0.3, curls the first pair of straight quotes.
func VaryPunctuation(text string, rng Rand) string {
	if strings.Contains(text, " - ") {
		dash := " – "
		if chance(rng, 0.5) {
			dash = " — "
		}
		text = strings.ReplaceAll(text, " - ", dash)
	}
	if strings.Count(text, `"`) >= 2 && chance(rng, 0.3) {
		text = strings.Replace(text, `"`, "“", 1)
		text = strings.Replace(text, `"`, "”", 1)
	}
	return text
}

// AddInvisibleCharacters inserts a zero-width space after the first space with probability rate.
func AddInvisibleCharacters(text string, rate float64, rng Rand) string {
	if chance(rng, rate) {
		return strings.Replace(text, " ", " \u200b", 1)
	}
	return text
}
