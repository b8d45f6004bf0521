package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

// Dialogue scoring modes
const (
	DialogueInvertedU = "inverted_u"
	DialogueFlat      = "flat"
)

// ScoreWeights are the creepiness score constants. Each signal is normalized
// to [0,1] and multiplied by its weight; the sum is clamped to [0,100].
type ScoreWeights struct {
	TriggerWeight     float64 `yaml:"trigger_weight"`
	TriggerSaturation int     `yaml:"trigger_saturation"`

	GlitchWeight float64 `yaml:"glitch_weight"`

	// DialogueMode is "inverted_u" (tension peaks at DialoguePeak percent)
	// or "flat" (more dialogue, higher score)
	DialogueMode   string  `yaml:"dialogue_mode"`
	DialoguePeak   float64 `yaml:"dialogue_peak"`
	DialogueSpread float64 `yaml:"dialogue_spread"`
	DialogueWeight float64 `yaml:"dialogue_weight"`

	LengthWeight          float64 `yaml:"length_weight"`
	LengthSaturationWords int     `yaml:"length_saturation_words"`

	EntityWeight     float64 `yaml:"entity_weight"`
	EntitySaturation int     `yaml:"entity_saturation"`

	SpoilerWeight float64 `yaml:"spoiler_weight"`
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		TriggerWeight:         40,
		TriggerSaturation:     5,
		GlitchWeight:          15,
		DialogueMode:          DialogueInvertedU,
		DialoguePeak:          30,
		DialogueSpread:        70,
		DialogueWeight:        10,
		LengthWeight:          20,
		LengthSaturationWords: 5000,
		EntityWeight:          5,
		EntitySaturation:      10,
		SpoilerWeight:         5,
	}
}

// Validate checks that every saturation point is positive and the dialogue
// mode is known
func (w ScoreWeights) Validate() error {
	if w.TriggerSaturation <= 0 || w.LengthSaturationWords <= 0 || w.EntitySaturation <= 0 {
		return fmt.Errorf("score saturation values must be positive")
	}
	switch w.DialogueMode {
	case DialogueInvertedU:
		if w.DialogueSpread <= 0 {
			return fmt.Errorf("dialogue_spread must be positive for %s mode", DialogueInvertedU)
		}
	case DialogueFlat:
	default:
		return fmt.Errorf("unknown dialogue_mode %q", w.DialogueMode)
	}
	for name, v := range map[string]float64{
		"trigger_weight":  w.TriggerWeight,
		"glitch_weight":   w.GlitchWeight,
		"dialogue_weight": w.DialogueWeight,
		"length_weight":   w.LengthWeight,
		"entity_weight":   w.EntityWeight,
		"spoiler_weight":  w.SpoilerWeight,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Scorer turns extractor fragments into the composite score and the report
type Scorer struct {
	w ScoreWeights
}

func NewScorer(w ScoreWeights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score weights: %w", err)
	}
	return &Scorer{w: w}, nil
}

// Score computes the creepiness index in [0,100]
func (s *Scorer) Score(doc models.NormalizedDocument, f Fragments) int {
	words := len(strings.Fields(doc.Body))

	total := s.triggerSignal(len(f.TriggerWarnings)) +
		s.glitchSignal(f.ZalgoGlitch) +
		s.DialogueSignal(f.Dialogue.Percentage, words) +
		s.lengthSignal(words) +
		saturate(len(f.Entities), s.w.EntitySaturation)*s.w.EntityWeight

	if len(f.Spoilers) > 0 {
		total += s.w.SpoilerWeight
	}

	return int(math.Max(0, math.Min(100, math.Round(total))))
}

func (s *Scorer) triggerSignal(categories int) float64 {
	return saturate(categories, s.w.TriggerSaturation) * s.w.TriggerWeight
}

func (s *Scorer) glitchSignal(glitch bool) float64 {
	if glitch {
		return s.w.GlitchWeight
	}
	return 0
}

// DialogueSignal is the dialogue contribution for a percentage in [0,100].
// Empty documents contribute nothing.
func (s *Scorer) DialogueSignal(percentage float64, words int) float64 {
	if words == 0 {
		return 0
	}
	if s.w.DialogueMode == DialogueFlat {
		return percentage / 100 * s.w.DialogueWeight
	}
	shape := 1 - math.Abs(percentage-s.w.DialoguePeak)/s.w.DialogueSpread
	return math.Max(0, shape) * s.w.DialogueWeight
}

func (s *Scorer) lengthSignal(words int) float64 {
	if words == 0 {
		return 0
	}
	scaled := math.Log10(1+float64(words)) / math.Log10(1+float64(s.w.LengthSaturationWords))
	return math.Min(scaled, 1) * s.w.LengthWeight
}

func saturate(n, at int) float64 {
	return math.Min(float64(n)/float64(at), 1)
}

// Aggregate assembles the report. Every list field is non-nil so it encodes
// as []. The origin author, when known, leads the author list.
func (s *Scorer) Aggregate(doc models.NormalizedDocument, origin *models.Origin, f Fragments) models.AnalysisReport {
	data := models.EmptyReportData()

	data.Entities = orEmpty(f.Entities)
	data.Emails = orEmpty(f.Emails)
	data.Dates = orEmpty(f.Dates)
	data.TriggerWarnings = orEmpty(f.TriggerWarnings)
	data.Spoilers = orEmpty(f.Spoilers)
	data.DialogueStats = f.Dialogue
	data.ZalgoGlitch = f.ZalgoGlitch

	authors := orEmpty(f.Authors)
	if origin != nil {
		data.Subreddit = origin.Board
		if origin.Author != "" && !containsFold(authors, origin.Author) {
			authors = append([]string{origin.Author}, authors...)
		}
	}
	data.Authors = authors

	data.CreepinessScore = s.Score(doc, f)

	return models.AnalysisReport{
		Data:      data,
		FullStory: doc.Body,
	}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
