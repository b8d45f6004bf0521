package analyzer

import (
	"fmt"
	"unicode"

	"github.com/zombar/creepyparser/internal/models"
)

// GlitchThresholds decide when combining marks count as zalgo text.
// Both checks are conservative; the flag is binary.
type GlitchThresholds struct {
	// MaxStackedMarks is the largest legitimate number of marks on one base
	MaxStackedMarks int `yaml:"max_stacked_marks"`
	// DensityThreshold is the share of code points (0-1) that may be
	// diacritical marks
	DensityThreshold float64 `yaml:"density_threshold"`
	// MinDensityMarks keeps short texts with a few accents from tripping
	// the density check
	MinDensityMarks int `yaml:"min_density_marks"`
}

func DefaultGlitchThresholds() GlitchThresholds {
	return GlitchThresholds{
		MaxStackedMarks:  3,
		DensityThreshold: 0.05,
		MinDensityMarks:  10,
	}
}

// Validate rejects thresholds that would flag ordinary accented text
func (g GlitchThresholds) Validate() error {
	if g.MaxStackedMarks < 1 {
		return fmt.Errorf("glitch max_stacked_marks must be at least 1, got %d", g.MaxStackedMarks)
	}
	if g.DensityThreshold <= 0 || g.DensityThreshold > 1 {
		return fmt.Errorf("glitch density_threshold must be in (0,1], got %v", g.DensityThreshold)
	}
	if g.MinDensityMarks < 1 {
		return fmt.Errorf("glitch min_density_marks must be at least 1, got %d", g.MinDensityMarks)
	}
	return nil
}

var diacriticalBlocks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0300, Hi: 0x036F, Stride: 1},
		{Lo: 0x1AB0, Hi: 0x1AFF, Stride: 1},
		{Lo: 0x1DC0, Hi: 0x1DFF, Stride: 1},
		{Lo: 0x20D0, Hi: 0x20FF, Stride: 1},
		{Lo: 0xFE20, Hi: 0xFE2F, Stride: 1},
	},
}

// GlitchDetector flags zalgo-style stacked combining marks
type GlitchDetector struct {
	Thresholds GlitchThresholds
}

func (GlitchDetector) Name() string { return "glitch" }

func (g GlitchDetector) Extract(doc models.NormalizedDocument) (Fragments, error) {
	th := g.Thresholds
	if th == (GlitchThresholds{}) {
		th = DefaultGlitchThresholds()
	}

	var stacked, maxStack, diacritics, total int
	for _, r := range doc.Body {
		total++
		if unicode.In(r, unicode.Mn, unicode.Me) {
			stacked++
			maxStack = max(maxStack, stacked)
		} else {
			stacked = 0
		}
		if unicode.Is(diacriticalBlocks, r) {
			diacritics++
		}
	}

	glitch := maxStack > th.MaxStackedMarks
	if !glitch && total > 0 && diacritics >= th.MinDensityMarks {
		glitch = float64(diacritics)/float64(total) > th.DensityThreshold
	}

	return Fragments{ZalgoGlitch: glitch}, nil
}
