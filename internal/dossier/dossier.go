// Package dossier renders an analysis envelope for humans and scripts.
// The JSON form is byte-compatible with the HTTP response body.
package dossier

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

// Output formats
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Formats lists the accepted --format values
var Formats = []string{FormatJSON, FormatMarkdown, FormatText}

// Writer renders one envelope
type Writer interface {
	Write(env models.Envelope) error
}

// NewWriter returns the writer for format. "md" is accepted for markdown.
func NewWriter(format string, out io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return &JSONWriter{output: out}, nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(out), nil
	case FormatText, "txt":
		return NewTextWriter(out, DefaultTextWidth), nil
	}
	return nil, fmt.Errorf("unknown format %q: use one of %s", format, strings.Join(Formats, ", "))
}

// JSONWriter writes the envelope as indented JSON
type JSONWriter struct {
	output io.Writer
}

func (w *JSONWriter) Write(env models.Envelope) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// scoreBand names the score range used by the markdown alert and text banner
func scoreBand(score int) string {
	switch {
	case score >= 70:
		return "deeply unsettling"
	case score >= 40:
		return "creepy"
	case score >= 15:
		return "mildly eerie"
	default:
		return "tame"
	}
}
