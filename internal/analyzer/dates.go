package analyzer

import (
	"regexp"
	"slices"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const timeUnits = `(?:seconds?|minutes?|hours?|days?|nights?|weeks?|months?|years?|decades?)`

var datePattern = buildDatePattern()

func buildDatePattern() *regexp.Regexp {
	words := slices.Clone(dateNumberWords)
	// longest first so "a couple of" wins over "a"
	slices.SortStableFunc(words, func(a, b string) int { return len(b) - len(a) })
	for i, w := range words {
		words[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	numbers := `(?:\d+|` + strings.Join(words, "|") + `)`

	alternatives := []string{
		// 1998-10-31
		`\b\d{4}-\d{1,2}-\d{1,2}\b`,
		// 31/10/1998, 10-31-98, 31.10.1998
		`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`,
		// 31st of October, 1998
		`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthNames + `\b(?:,?\s+\d{4}\b)?`,
		// October 1998
		`\b` + monthNames + `\s+\d{4}\b`,
		// October 31st, 1998
		`\b` + monthNames + `\s+\d{1,2}(?:st|nd|rd|th)?\b(?:,?\s+\d{4}\b)?`,
		// three days later
		`\b` + numbers + `\s+` + timeUnits + `\s+(?:ago|later|earlier|before|after|prior)\b`,
		// that night, the next morning
		`\b(?:that|last|this|one|the\s+next|the\s+following|the\s+previous)\s+(?:night|morning|evening|afternoon|day|week|weekend|month|year|summer|winter|autumn|fall|spring)\b`,
		`\b(?:yesterday|tomorrow|tonight|midnight)\b`,
		// in 1998
		`\b(?:back\s+in|in|since|until)\s+(?:1[89]|20)\d{2}\b`,
	}

	return regexp.MustCompile(`(?i)` + strings.Join(alternatives, "|"))
}

// DateExtractor finds absolute and relative time references. Matches stay in
// document order since relative phrases cannot be placed on a timeline.
type DateExtractor struct{}

func (DateExtractor) Name() string { return "dates" }

func (DateExtractor) Extract(doc models.NormalizedDocument) (Fragments, error) {
	dates := []string{}
	for _, m := range datePattern.FindAllString(doc.Body, -1) {
		dates = append(dates, strings.Join(strings.Fields(m), " "))
	}
	return Fragments{Dates: dates}, nil
}
