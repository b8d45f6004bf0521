package analyzer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon maps lowercased terms and phrases to a trigger-warning category.
// It is built once and never modified afterwards.
type Lexicon struct {
	terms      map[string]string
	categories []string
	maxWords   int
}

type lexiconFile struct {
	Categories []struct {
		Name  string   `yaml:"name"`
		Terms []string `yaml:"terms"`
	} `yaml:"categories"`
}

var defaultLexicon = mustParseLexicon(defaultLexiconYAML)

// DefaultLexicon returns the embedded trigger lexicon
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

func mustParseLexicon(data []byte) *Lexicon {
	l, err := ParseLexicon(data)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon: %v", err))
	}
	return l
}

// LoadLexicon reads a lexicon YAML file from disk
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied lexicon path
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon builds a Lexicon from YAML. A term listed under two categories
// keeps the first one.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lf lexiconFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(lf.Categories) == 0 {
		return nil, fmt.Errorf("lexicon has no categories")
	}

	l := &Lexicon{
		terms:      make(map[string]string),
		categories: make([]string, 0, len(lf.Categories)),
		maxWords:   1,
	}
	for _, c := range lf.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("lexicon category without a name")
		}
		l.categories = append(l.categories, name)
		for _, term := range c.Terms {
			words := lexiconWords(term)
			if len(words) == 0 {
				continue
			}
			key := strings.Join(words, " ")
			if _, exists := l.terms[key]; !exists {
				l.terms[key] = name
			}
			if len(words) > l.maxWords {
				l.maxWords = len(words)
			}
		}
	}
	return l, nil
}

// Categories lists category names in declaration order
func (l *Lexicon) Categories() []string {
	out := make([]string, len(l.categories))
	copy(out, l.categories)
	return out
}

// Lookup returns the category for a term or phrase
func (l *Lexicon) Lookup(term string) (string, bool) {
	c, ok := l.terms[strings.Join(lexiconWords(term), " ")]
	return c, ok
}

// Size returns the number of distinct terms
func (l *Lexicon) Size() int {
	return len(l.terms)
}

// entityStopWords are capitalized words that are never entities on their own:
// days, months, pronouns, titles and common sentence openers.
var entityStopWords = toSet(
	// days and months
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	// pronouns
	"i", "i'm", "i've", "i'd", "i'll", "me", "my", "mine", "myself",
	"you", "your", "yours", "yourself", "he", "him", "his", "himself",
	"she", "her", "hers", "herself", "it", "its", "itself", "we", "us", "our", "ours",
	"they", "them", "their", "theirs", "themselves", "it's", "he's", "she's", "we're",
	"they're", "you're", "that's", "there's", "what's", "let's", "don't", "didn't",
	"couldn't", "wasn't", "can't", "won't", "isn't",
	// determiners, conjunctions, prepositions
	"the", "a", "an", "this", "that", "these", "those", "some", "any", "every", "each",
	"and", "but", "or", "nor", "so", "yet", "for", "if", "then", "than", "because",
	"as", "at", "in", "on", "of", "to", "from", "with", "by", "into", "onto", "over",
	"under", "after", "before", "during", "while", "until", "since", "about", "through",
	// question and sentence-opening words
	"what", "why", "how", "who", "whom", "where", "when", "which", "whose",
	"there", "here", "now", "just", "maybe", "perhaps", "not", "no", "yes", "yeah",
	"please", "also", "still", "even", "only", "all", "both", "nothing", "everything",
	"someone", "something", "nobody", "everyone", "one", "two", "three",
	"today", "tonight", "yesterday", "tomorrow", "later", "once", "last", "next",
	"never", "always", "sometimes", "again", "soon",
	// interjections
	"oh", "ah", "hey", "hi", "hello", "okay", "ok", "well", "wow", "um", "uh", "huh",
	// titles
	"mr", "mrs", "ms", "dr", "prof", "st", "sir", "madam",
	// reddit/story furniture
	"edit", "update", "tl", "dr", "tldr", "part", "op",
)

// dateNumberWords feed the relative date pattern
var dateNumberWords = []string{
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "fifteen", "twenty", "thirty", "a few", "a couple of",
	"a couple", "several", "many", "a", "an",
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
