package analyzer

import (
	"regexp"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// EmailExtractor finds contact addresses. Bare domains never match.
type EmailExtractor struct{}

func (EmailExtractor) Name() string { return "emails" }

func (EmailExtractor) Extract(doc models.NormalizedDocument) (Fragments, error) {
	emails := []string{}
	seen := make(map[string]bool)

	for _, m := range emailPattern.FindAllString(doc.Body, -1) {
		key := strings.ToLower(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		emails = append(emails, m)
	}

	return Fragments{Emails: emails}, nil
}
