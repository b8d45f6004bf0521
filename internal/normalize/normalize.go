package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/zombar/creepyparser/internal/models"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	// requires a tag name, so spoiler markers like ">!text!<" survive
	htmlTag  = regexp.MustCompile(`(?i)</?([a-z][a-z0-9-]*)(?:\s[^<>]*)?/?>`)
	spaceRun = regexp.MustCompile(`[\t \x{00A0}\x{3000}]+`)
)

// Tags that end a block of text and therefore a paragraph
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "table": true, "section": true, "article": true, "pre": true, "hr": true,
}

// Normalize canonicalizes raw text and segments it into paragraphs and sentences.
// Combining marks and other unusual code points are kept as-is.
func Normalize(raw models.RawDocument) models.NormalizedDocument {
	text := strings.ToValidUTF8(raw.Body, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = stripMarkup(text)
	text = html.UnescapeString(text)
	text = stripControl(text)

	paragraphs := SplitParagraphs(text)
	sentences := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		sentences = append(sentences, SplitSentences(p)...)
	}

	return models.NormalizedDocument{
		Body:       strings.Join(paragraphs, "\n\n"),
		Paragraphs: paragraphs,
		Sentences:  sentences,
	}
}

// stripMarkup drops HTML tags, turning block-level tags into paragraph breaks
func stripMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	text = scriptBlock.ReplaceAllString(text, "")
	text = styleBlock.ReplaceAllString(text, "")
	text = htmlComment.ReplaceAllString(text, "")
	return htmlTag.ReplaceAllStringFunc(text, func(tag string) string {
		m := htmlTag.FindStringSubmatch(tag)
		name := strings.ToLower(m[1])
		switch {
		case name == "br":
			return "\n"
		case blockTags[name]:
			return "\n\n"
		default:
			return ""
		}
	})
}

// stripControl removes Cc characters except newline and tab
func stripControl(text string) string {
	t := runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.IsControl(r) && r != '\n' && r != '\t'
	}))
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// SplitParagraphs splits text on blank lines. Whitespace runs inside a line
// collapse to a single space and lines are trimmed.
func SplitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")
	paragraphs := []string{}
	current := make([]string, 0, 8)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}
