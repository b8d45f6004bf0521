package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

var spoilerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`>!(.+?)!<`),
	regexp.MustCompile(`(?is)\[spoiler\](.+?)\[/spoiler\]`),
	regexp.MustCompile(`(?im)^[ \t]*spoilers?[ \t]*:[ \t]*(.+)$`),
}

type spoilerMatch struct {
	start, end int
	text       string
}

// SpoilerDetector returns the hidden text of marked spoilers
type SpoilerDetector struct{}

func (SpoilerDetector) Name() string { return "spoilers" }

// Extract merges all spoiler conventions into document order; a span nested
// in an earlier one is reported only once.
func (SpoilerDetector) Extract(doc models.NormalizedDocument) (Fragments, error) {
	var matches []spoilerMatch
	for _, re := range spoilerPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(doc.Body, -1) {
			matches = append(matches, spoilerMatch{
				start: loc[0],
				end:   loc[1],
				text:  strings.TrimSpace(doc.Body[loc[2]:loc[3]]),
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	spoilers := []string{}
	lastEnd := -1
	for _, m := range matches {
		if m.start < lastEnd || m.text == "" {
			continue
		}
		spoilers = append(spoilers, m.text)
		lastEnd = m.end
	}

	return Fragments{Spoilers: spoilers}, nil
}
