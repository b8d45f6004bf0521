package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zombar/creepyparser/internal/models"
)

var entityToken = regexp.MustCompile(`\p{L}[\p{L}\p{N}]*(?:['’\-]\p{L}[\p{L}\p{N}]*)*`)

type token struct {
	text    string
	start   int
	end     int
	initial bool
}

// EntityExtractor reports capitalized names and places
type EntityExtractor struct{}

func (EntityExtractor) Name() string { return "entities" }

// Extract collects maximal runs of capitalized words per sentence. Stop words
// split runs, a run that opens a sentence loses a lone first word, and
// entities contained in a longer entity are dropped.
func (EntityExtractor) Extract(doc models.NormalizedDocument) (Fragments, error) {
	var found []string
	seen := make(map[string]bool)

	for _, sentence := range doc.Sentences {
		for _, e := range sentenceEntities(sentence) {
			if !seen[e] {
				seen[e] = true
				found = append(found, e)
			}
		}
	}

	return Fragments{Entities: dropContained(found)}, nil
}

func sentenceEntities(sentence string) []string {
	toks := tokenize(sentence)
	shouting := countAllCaps(toks) >= 3

	var out []string
	var run []token
	flush := func() {
		if len(run) > 0 && run[0].initial {
			// "Suddenly Martha" opens a sentence with an adverb; a lone
			// sentence-initial word carries no signal at all
			if len(run) == 1 || strings.HasSuffix(strings.ToLower(run[0].text), "ly") {
				run = run[1:]
			}
		}
		if len(run) > 0 {
			words := make([]string, len(run))
			for i, t := range run {
				words[i] = t.text
			}
			out = append(out, strings.Join(words, " "))
		}
		run = nil
	}

	for i, t := range toks {
		if !isEntityWord(t.text, shouting) {
			flush()
			continue
		}
		if len(run) > 0 && strings.TrimSpace(sentence[toks[i-1].end:t.start]) != "" {
			flush()
		}
		run = append(run, t)
	}
	flush()

	return out
}

func tokenize(sentence string) []token {
	locs := entityToken.FindAllStringIndex(sentence, -1)
	toks := make([]token, 0, len(locs))
	prevEnd := 0
	for i, loc := range locs {
		toks = append(toks, token{
			text:    stripPossessive(sentence[loc[0]:loc[1]]),
			start:   loc[0],
			end:     loc[1],
			initial: i == 0 || opensQuote(sentence, prevEnd, loc[0]),
		})
		prevEnd = loc[1]
	}
	return toks
}

// opensQuote reports whether sentence[from:to] holds an opening quote. A
// straight quote opens only at the start of the sentence or after
// whitespace or a bracket; `"Run," Mary` has the quote closing after the comma.
func opensQuote(sentence string, from, to int) bool {
	for i, r := range sentence[from:to] {
		switch r {
		case '“', '‘', '«':
			return true
		case '"':
			at := from + i
			if at == 0 {
				return true
			}
			prev, _ := utf8.DecodeLastRuneInString(sentence[:at])
			if unicode.IsSpace(prev) || strings.ContainsRune("([{", prev) {
				return true
			}
		}
	}
	return false
}

func stripPossessive(word string) string {
	for _, suffix := range []string{"'s", "’s", "'S"} {
		if trimmed, ok := strings.CutSuffix(word, suffix); ok && trimmed != "" {
			return trimmed
		}
	}
	return word
}

func isEntityWord(word string, shouting bool) bool {
	first := []rune(word)[0]
	if !unicode.IsUpper(first) {
		return false
	}
	if shouting && isAllCaps(word) {
		return false
	}
	key := strings.ReplaceAll(strings.ToLower(word), "’", "'")
	return !entityStopWords[key]
}

func isAllCaps(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}

func countAllCaps(toks []token) int {
	n := 0
	for _, t := range toks {
		if isAllCaps(t.text) {
			n++
		}
	}
	return n
}

// dropContained removes entities whose words form a contiguous part of a
// longer entity ("John" when "John Smith" is present)
func dropContained(entities []string) []string {
	out := []string{}
	for i, e := range entities {
		padded := " " + e + " "
		contained := false
		for j, other := range entities {
			if i == j || len(other) <= len(e) {
				continue
			}
			if strings.Contains(" "+other+" ", padded) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, e)
		}
	}
	return out
}
