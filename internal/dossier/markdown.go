package dossier

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/zombar/creepyparser/internal/models"
)

// MarkdownWriter outputs the case-file dossier in Markdown
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the full dossier
func (w *MarkdownWriter) Write(env models.Envelope) error {
	md := markdown.NewMarkdown(w.output)
	d := env.Data

	w.writeHeader(md, env)
	w.writeAlert(md, d)

	w.writeList(md, "Trigger Warnings", d.TriggerWarnings, "No trigger warnings.")
	w.writeList(md, "Entities", d.Entities, "No named entities found.")
	w.writeList(md, "Authors", d.Authors, "No authors found.")
	w.writeList(md, "Emails", d.Emails, "No email addresses found.")
	w.writeList(md, "Dates", d.Dates, "No dates found.")
	w.writeSpoilers(md, d.Spoilers)
	w.writeStory(md, env.FullStory)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Dossier %s generated by creepyparser*", env.RequestID)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, env models.Envelope) {
	d := env.Data
	md.H1("Case File")
	md.PlainText("")

	subreddit := "-"
	if d.Subreddit != "" {
		subreddit = "r/" + d.Subreddit
	}
	glitch := "No"
	if d.ZalgoGlitch {
		glitch = "Yes"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Request ID", "`" + env.RequestID + "`"},
			{"Analyzed At", env.AnalyzedAt},
			{"Creepiness Score", strconv.Itoa(d.CreepinessScore) + " / 100"},
			{"Subreddit", subreddit},
			{"Dialogue", fmt.Sprintf("%.0f%% in %d quotes", d.DialogueStats.Percentage, d.DialogueStats.DialogueCount)},
			{"Glitch Text", glitch},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, d models.ReportData) {
	band := scoreBand(d.CreepinessScore)
	switch {
	case d.CreepinessScore >= 70:
		md.Cautionf("Rated %s (%d). %d trigger categories flagged.", band, d.CreepinessScore, len(d.TriggerWarnings))
	case d.CreepinessScore >= 40:
		md.Warningf("Rated %s (%d).", band, d.CreepinessScore)
	case len(d.TriggerWarnings) > 0:
		md.Importantf("Rated %s (%d), but trigger warnings apply.", band, d.CreepinessScore)
	default:
		md.Tip("Rated " + band + ".")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeList(md *markdown.Markdown, title string, items []string, empty string) {
	md.H2(title)
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText(empty)
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

// spoilers go behind a details toggle so the dossier stays safe to skim
func (w *MarkdownWriter) writeSpoilers(md *markdown.Markdown, spoilers []string) {
	md.H2("Spoilers")
	md.PlainText("")
	if len(spoilers) == 0 {
		md.PlainText("No spoilers marked.")
		md.PlainText("")
		return
	}
	for i, s := range spoilers {
		md.Details("Spoiler "+strconv.Itoa(i+1), s)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeStory(md *markdown.Markdown, story string) {
	md.H2("Full Story")
	md.PlainText("")
	if strings.TrimSpace(story) == "" {
		md.PlainText("(empty)")
		md.PlainText("")
		return
	}
	md.CodeBlocks(markdown.SyntaxHighlightText, story)
	md.PlainText("")
}
