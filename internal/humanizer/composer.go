package humanizer

import "strings"

// paragraphTarget draws the sentence count of the next paragraph: [2,5] above
// intensity 0.5, [3,6] otherwise.
func paragraphTarget(intensity float64, rng Rand) int {
	if intensity > 0.5 {
		return 2 + rng.IntN(4)
	}
	return 3 + rng.IntN(4)
}

// ComposeParagraphs groups sentences into paragraphs of randomized length.
// Several paragraphs are joined by a blank line; a single paragraph is the
// sentences joined by spaces. Every sentence appears exactly once, in order.
func ComposeParagraphs(sentences []string, intensity float64, rng Rand) string {
	if len(sentences) == 0 {
		return ""
	}
	var paragraphs []string
	var current []string
	target := paragraphTarget(intensity, rng)
	for i, s := range sentences {
		current = append(current, s)
		last := i == len(sentences)-1
		if len(current) < target && !last {
			continue
		}
		paragraphs = append(paragraphs, strings.Join(current, " "))
		current = current[:0]
		if !last {
			target = paragraphTarget(intensity, rng)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
