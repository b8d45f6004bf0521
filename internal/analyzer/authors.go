package analyzer

import (
	"regexp"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

var authorPattern = regexp.MustCompile(`(?:\b[uU]/|\b[Ww]ritten [Bb]y:?\s*(?:[uU]/)?)([\w\-.]+)`)

// AuthorExtractor finds u/handle mentions and "Written by" credits
type AuthorExtractor struct{}

func (AuthorExtractor) Name() string { return "authors" }

func (AuthorExtractor) Extract(doc models.NormalizedDocument) (Fragments, error) {
	authors := []string{}
	seen := make(map[string]bool)

	for _, m := range authorPattern.FindAllStringSubmatch(doc.Body, -1) {
		name := strings.TrimRight(m[1], ".-")
		if name == "" || entityStopWords[strings.ToLower(name)] {
			continue
		}
		if !seen[name] {
			seen[name] = true
			authors = append(authors, name)
		}
	}

	return Fragments{Authors: authors}, nil
}
