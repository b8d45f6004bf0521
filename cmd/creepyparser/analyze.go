package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zombar/creepyparser/internal/analyzer"
	"github.com/zombar/creepyparser/internal/config"
	"github.com/zombar/creepyparser/internal/dossier"
	"github.com/zombar/creepyparser/internal/models"
	"github.com/zombar/creepyparser/internal/pipeline"
	"github.com/zombar/creepyparser/internal/retrieval"
	"github.com/zombar/creepyparser/internal/source"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a story and print its dossier",
		Long: `Analyze a story given as literal text, a local file or a source URL.

Examples:
  # Literal text
  creepyparser analyze --text "It was midnight on Blackwood Lane."

  # A Reddit thread, as a Markdown dossier
  creepyparser analyze --url https://www.reddit.com/r/nosleep/comments/abc123/ --format markdown

  # A PDF, saved as JSON
  creepyparser analyze --file story.pdf --output report.json`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().StringP("text", "t", "", "Story text to analyze")
	cmd.Flags().StringP("url", "u", "", "Reddit thread or Fandom wiki page to fetch")
	cmd.Flags().StringP("file", "f", "", "Read the story from a .txt, .md or .pdf file")
	cmd.Flags().StringP("format", "F", dossier.FormatJSON,
		"Output format: "+strings.Join(dossier.Formats, ", "))
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout (creates directories if needed)")
	cmd.MarkFlagsMutuallyExclusive("text", "url", "file")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")
	if _, err := dossier.NewWriter(format, io.Discard); err != nil {
		return err
	}

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd)

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := engine.Analyze(ctx, req)
	if err != nil {
		return describeError(err)
	}
	env := models.NewEnvelope(report, uuid.NewString(), time.Now())
	return writeReport(cmd.OutOrStdout(), outPath, format, env)
}

func buildRequest(cmd *cobra.Command) (models.AnalysisRequest, error) {
	text, _ := cmd.Flags().GetString("text")
	url, _ := cmd.Flags().GetString("url")
	file, _ := cmd.Flags().GetString("file")

	if file != "" {
		body, err := readStoryFile(file)
		if err != nil {
			return models.AnalysisRequest{}, err
		}
		return models.AnalysisRequest{Text: body}, nil
	}
	if text == "" && url == "" {
		return models.AnalysisRequest{}, errors.New("provide one of --text, --url or --file")
	}
	return models.AnalysisRequest{Text: text, URL: url}, nil
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*pipeline.Engine, error) {
	acfg, err := cfg.Analyzer()
	if err != nil {
		return nil, err
	}
	a, err := analyzer.NewWithConfig(acfg)
	if err != nil {
		return nil, err
	}
	a.WithLogger(logger)

	client := retrieval.New(cfg.RetrievalClient()).WithLogger(logger)
	resolver := source.NewResolver(client, cfg.SourceResolver()).WithLogger(logger)
	return pipeline.New(resolver, a, cfg.Analysis.Timeout).WithLogger(logger), nil
}

// describeError turns engine errors into the same wording the HTTP API uses
func describeError(err error) error {
	var re *models.RetrievalError
	if errors.As(err, &re) {
		return fmt.Errorf("%s (%w)", re.Detail(), err)
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("analysis cancelled")
	}
	return err
}

func writeReport(stdout io.Writer, outPath, format string, env models.Envelope) error {
	out := stdout
	if outPath != "" {
		if dir := filepath.Dir(outPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		f, err := os.Create(outPath) //nolint:gosec // user-supplied output path
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, err := dossier.NewWriter(format, out)
	if err != nil {
		return err
	}
	return w.Write(env)
}
