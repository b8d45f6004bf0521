package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/zombar/creepyparser/internal/models"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['\-][\p{L}\p{N}]+)*`)

// declaredPattern matches an author's own warning line such as
// "TW: gore, clowns" or "[Content Warning - self-harm]"
var declaredPattern = regexp.MustCompile(`(?im)^[ \t]*[\[(*]*[ \t]*(?:tw|cw|trigger warnings?|content warnings?)[ \t]*[:\-–][ \t]*(.+)$`)

// declared items longer than this read as prose, not a category
const maxDeclaredWords = 4

// lexiconWords folds case and splits text into lexicon words. Curly
// apostrophes are treated as straight ones so "don’t" and "don't" match.
func lexiconWords(text string) []string {
	// a Caser keeps state, so one per call
	folded := cases.Fold().String(strings.ReplaceAll(text, "’", "'"))
	return wordPattern.FindAllString(folded, -1)
}

// TriggerClassifier maps document words and phrases to warning categories
type TriggerClassifier struct {
	Lexicon *Lexicon
}

func (TriggerClassifier) Name() string { return "triggers" }

// Extract reports each matched category once, in order of first match.
// Warnings the author declares on a TW/CW line come first; items the
// lexicon knows map to its category and the rest are kept as written.
// Longer phrases are tried first at each position.
func (t TriggerClassifier) Extract(doc models.NormalizedDocument) (Fragments, error) {
	lex := t.Lexicon
	if lex == nil {
		lex = DefaultLexicon()
	}

	found := []string{}
	seen := make(map[string]bool)
	add := func(category string) {
		if !seen[category] {
			seen[category] = true
			found = append(found, category)
		}
	}

	for _, para := range doc.Paragraphs {
		for _, m := range declaredPattern.FindAllStringSubmatch(para, -1) {
			for _, item := range splitDeclared(m[1]) {
				if category, ok := declaredCategory(lex, item); ok {
					add(category)
				}
			}
		}
	}

	for _, para := range doc.Paragraphs {
		words := lexiconWords(para)
		for i := 0; i < len(words); i++ {
			if category, n := lex.longestAt(words, i); n > 0 {
				add(category)
				i += n - 1
			}
		}
	}

	return Fragments{TriggerWarnings: found}, nil
}

// longestAt returns the category of the longest term starting at words[i]
// and its length in words, or 0 when nothing matches
func (l *Lexicon) longestAt(words []string, i int) (string, int) {
	for n := min(l.maxWords, len(words)-i); n >= 1; n-- {
		if category, ok := l.terms[strings.Join(words[i:i+n], " ")]; ok {
			return category, n
		}
	}
	return "", 0
}

func splitDeclared(list string) []string {
	var items []string
	for _, item := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ';' || r == '/' }) {
		item = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(item), ".!)]*"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// declaredCategory resolves one declared item through the lexicon, falling
// back to the item itself in folded form
func declaredCategory(lex *Lexicon, item string) (string, bool) {
	words := lexiconWords(item)
	if len(words) == 0 {
		return "", false
	}
	for i := range words {
		if category, n := lex.longestAt(words, i); n > 0 {
			return category, true
		}
	}
	if len(words) > maxDeclaredWords {
		return "", false
	}
	return strings.Join(words, " "), true
}
