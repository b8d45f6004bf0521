package dossier

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/zombar/creepyparser/internal/models"
)

// DefaultTextWidth is the terminal width the text report wraps lists to
const DefaultTextWidth = 80

// TextWriter prints a compact terminal summary
type TextWriter struct {
	output io.Writer
	width  int
}

// NewTextWriter creates a TextWriter. width <= 0 uses DefaultTextWidth.
func NewTextWriter(output io.Writer, width int) *TextWriter {
	if width <= 0 {
		width = DefaultTextWidth
	}
	return &TextWriter{output: output, width: width}
}

func (w *TextWriter) Write(env models.Envelope) error {
	d := env.Data
	glitch := "no"
	if d.ZalgoGlitch {
		glitch = "yes"
	}

	rows := [][2]string{
		{"Score", fmt.Sprintf("%d/100 (%s)", d.CreepinessScore, scoreBand(d.CreepinessScore))},
		{"Subreddit", orDash(d.Subreddit)},
		{"Dialogue", fmt.Sprintf("%.0f%% in %d quotes", d.DialogueStats.Percentage, d.DialogueStats.DialogueCount)},
		{"Glitch text", glitch},
		{"Triggers", w.joinList(d.TriggerWarnings)},
		{"Entities", w.joinList(d.Entities)},
		{"Authors", w.joinList(d.Authors)},
		{"Emails", w.joinList(d.Emails)},
		{"Dates", w.joinList(d.Dates)},
		{"Spoilers", strconv.Itoa(len(d.Spoilers))},
	}

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r[0]))
	}

	var b strings.Builder
	for _, r := range rows {
		b.WriteString(runewidth.FillRight(r[0], labelWidth))
		b.WriteString("  ")
		b.WriteString(r[1])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(w.preview(env.ExtractedTextPreview))
	b.WriteByte('\n')

	_, err := io.WriteString(w.output, b.String())
	return err
}

// joinList fits items on one line, truncating by display width
func (w *TextWriter) joinList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return runewidth.Truncate(strings.Join(items, ", "), w.width-14, "...")
}

// preview wraps the story excerpt to the terminal width
func (w *TextWriter) preview(s string) string {
	var lines []string
	var line strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+ww > w.width {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += ww
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
