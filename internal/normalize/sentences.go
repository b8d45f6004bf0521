package normalize

import (
	"strings"
	"unicode"
)

// Abbreviations that end in a period without ending the sentence
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true, "jr": true, "sr": true,
	"prof": true, "mt": true, "vs": true, "etc": true, "e.g": true, "i.e": true, "no": true,
	"lt": true, "sgt": true, "capt": true, "gen": true, "col": true, "rev": true, "ave": true,
	"approx": true, "dept": true, "fig": true,
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

// SplitSentences segments a single paragraph. A run of terminal punctuation
// (plus any closing quotes or brackets) ends a sentence when it is followed by
// whitespace and the next character is not lowercase, unless the period
// belongs to a known abbreviation or a single-letter initial.
func SplitSentences(paragraph string) []string {
	rs := []rune(paragraph)
	sentences := []string{}
	start := 0

	for i := 0; i < len(rs); i++ {
		if !isTerminal(rs[i]) {
			continue
		}

		j := i
		for j+1 < len(rs) && isTerminal(rs[j+1]) {
			j++
		}
		k := j
		for k+1 < len(rs) && isCloser(rs[k+1]) {
			k++
		}

		if k+1 < len(rs) && !unicode.IsSpace(rs[k+1]) {
			i = k
			continue
		}

		next := k + 1
		for next < len(rs) && unicode.IsSpace(rs[next]) {
			next++
		}
		if next < len(rs) && unicode.IsLower(rs[next]) {
			i = k
			continue
		}
		if rs[i] == '.' && j == i && endsWithAbbreviation(rs[start:i]) {
			i = k
			continue
		}

		if s := strings.TrimSpace(string(rs[start : k+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = next
		i = next - 1
	}

	if start < len(rs) {
		if tail := strings.TrimSpace(string(rs[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}

	return sentences
}

// endsWithAbbreviation checks the word right before a period
func endsWithAbbreviation(prefix []rune) bool {
	end := len(prefix)
	begin := end
	for begin > 0 && (unicode.IsLetter(prefix[begin-1]) || prefix[begin-1] == '.') {
		begin--
	}
	word := strings.Trim(string(prefix[begin:end]), ".")
	if word == "" {
		return false
	}

	wr := []rune(word)
	if len(wr) == 1 && unicode.IsUpper(wr[0]) {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}
