package analyzer

import (
	"math"
	"unicode"

	"github.com/zombar/creepyparser/internal/models"
)

// DialogueAnalyzer measures how much of the story is quoted speech
type DialogueAnalyzer struct{}

func (DialogueAnalyzer) Name() string { return "dialogue" }

// Extract counts non-whitespace characters inside quoted spans, delimiters
// included. Quote state resets at every paragraph, so an unmatched opening
// quote runs to the end of its paragraph.
func (DialogueAnalyzer) Extract(doc models.NormalizedDocument) (Fragments, error) {
	var quoted, total, spans int

	for _, para := range doc.Paragraphs {
		q, t, s := scanQuotes(para)
		quoted += q
		total += t
		spans += s
	}

	stats := models.DialogueStats{DialogueCount: spans}
	if total > 0 {
		stats.Percentage = math.Round(100 * float64(quoted) / float64(total))
	}
	return Fragments{Dialogue: stats}, nil
}

func scanQuotes(paragraph string) (quoted, total, spans int) {
	straight := false
	depth := 0 // curly and guillemet nesting

	for _, r := range paragraph {
		if unicode.IsSpace(r) {
			continue
		}
		total++

		inside := straight || depth > 0
		switch r {
		case '"':
			if inside {
				straight, depth = false, 0
			} else {
				straight = true
				spans++
			}
			quoted++
			continue
		case '“', '«':
			if !inside {
				spans++
			}
			depth++
			quoted++
			continue
		case '”', '»':
			// a closer with nothing open is ordinary text
			if !inside {
				continue
			}
			if depth > 0 {
				depth--
			} else {
				straight = false
			}
			quoted++
			continue
		}

		if inside {
			quoted++
		}
	}
	return quoted, total, spans
}
