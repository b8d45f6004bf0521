package models

import (
	"time"
	"unicode/utf8"
)

// AnalysisRequest is the body accepted by the analyze endpoint.
// Exactly one of Text or URL must be set.
type AnalysisRequest struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Origin describes where a fetched story came from
type Origin struct {
	Platform  string `json:"platform"`  // reddit, fandom
	Board     string `json:"board"`     // subreddit or wiki name
	Author    string `json:"author"`
	Permalink string `json:"permalink"`
	Title     string `json:"title"`
}

// RawDocument is the resolved input before normalization
type RawDocument struct {
	Body   string
	Origin *Origin // nil for literal text
}

// NormalizedDocument is the canonical text every extractor works on
type NormalizedDocument struct {
	Body       string
	Paragraphs []string
	Sentences  []string
}

// DialogueStats summarizes how much of the story is quoted speech
type DialogueStats struct {
	Percentage    float64 `json:"percentage"` // 0 to 100, whole number
	DialogueCount int     `json:"dialogue_count"`
}

// ReportData is the "data" object the display client renders
type ReportData struct {
	Authors         []string      `json:"authors"`
	Subreddit       string        `json:"subreddit"`
	CreepinessScore int           `json:"creepiness_score"` // 0 to 100
	DialogueStats   DialogueStats `json:"dialogue_stats"`
	ZalgoGlitch     bool          `json:"zalgo_glitch"`
	Spoilers        []string      `json:"spoilers"`
	Emails          []string      `json:"emails"`
	Dates           []string      `json:"dates"`
	Entities        []string      `json:"entities"`
	TriggerWarnings []string      `json:"trigger_warnings"`
}

// AnalysisReport is the deterministic output of the engine
type AnalysisReport struct {
	Data      ReportData `json:"data"`
	FullStory string     `json:"full_story"`
}

// Envelope wraps a report with per-request metadata for the HTTP and CLI surfaces.
// Nothing in here feeds back into the analysis.
type Envelope struct {
	Status               string `json:"status"`
	RequestID            string `json:"request_id"`
	AnalyzedAt           string `json:"analyzed_at"`
	ExtractedTextPreview string `json:"extracted_text_preview"`
	AnalysisReport
}

// ErrorResponse is the failure body; the client shows Detail verbatim
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// EmptyReportData returns report data with every list initialized,
// so the JSON carries [] instead of null.
func EmptyReportData() ReportData {
	return ReportData{
		Authors:         []string{},
		Spoilers:        []string{},
		Emails:          []string{},
		Dates:           []string{},
		Entities:        []string{},
		TriggerWarnings: []string{},
	}
}

// PreviewRunes is how much of the story goes into extracted_text_preview
const PreviewRunes = 200

// NewEnvelope wraps report for delivery. analyzedAt is formatted RFC3339 in UTC.
func NewEnvelope(report AnalysisReport, requestID string, analyzedAt time.Time) Envelope {
	return Envelope{
		Status:               "success",
		RequestID:            requestID,
		AnalyzedAt:           analyzedAt.UTC().Format(time.RFC3339),
		ExtractedTextPreview: Preview(report.FullStory, PreviewRunes),
		AnalysisReport:       report,
	}
}

// Preview returns the first n runes of s, with "..." appended when cut
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
