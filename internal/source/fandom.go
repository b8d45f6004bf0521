package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/zombar/creepyparser/internal/models"
)

var fandomWiki = regexp.MustCompile(`^([a-z0-9][a-z0-9-]*)\.fandom\.com$`)

// parseFandom accepts {wiki}.fandom.com/wiki/{Page}
func parseFandom(host string, segments []string) (*target, bool) {
	m := fandomWiki.FindStringSubmatch(host)
	if m == nil || len(segments) < 2 || segments[0] != "wiki" {
		return nil, false
	}
	page, err := url.PathUnescape(strings.Join(segments[1:], "/"))
	if err != nil || strings.TrimSpace(page) == "" {
		return nil, false
	}
	return &target{
		platform: PlatformFandom,
		board:    m[1],
		id:       page,
		link:     fmt.Sprintf("https://%s/wiki/%s", host, strings.Join(segments[1:], "/")),
	}, true
}

type fandomParse struct {
	Parse *struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (r *Resolver) fandomAPI(t *target) string {
	base := r.cfg.FandomAPIBase
	if base == "" {
		base = "https://" + t.board + ".fandom.com"
	}
	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", t.id)
	q.Set("prop", "text")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("redirects", "1")
	return base + "/api.php?" + q.Encode()
}

func (r *Resolver) resolveFandom(ctx context.Context, t *target) (*models.RawDocument, error) {
	apiURL := r.fandomAPI(t)

	content, err := r.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var resp fandomParse
	if err := content.DecodeJSON(&resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		kind := models.RetrievalMalformed
		if resp.Error.Code == "missingtitle" || resp.Error.Code == "pagecannotexist" {
			kind = models.RetrievalNotFound
		}
		return nil, models.NewRetrievalError(kind, apiURL, content.StatusCode,
			fmt.Errorf("wiki API error %s: %s", resp.Error.Code, resp.Error.Info))
	}
	if resp.Parse == nil || strings.TrimSpace(resp.Parse.Text) == "" {
		return nil, models.NewRetrievalError(models.RetrievalMalformed, apiURL, content.StatusCode,
			fmt.Errorf("wiki API response has no page text"))
	}

	body, err := htmlParagraphs(resp.Parse.Text, ".mw-parser-output")
	if err != nil || body == "" {
		if err == nil {
			err = fmt.Errorf("page has no story text")
		}
		return nil, models.NewRetrievalError(models.RetrievalMalformed, apiURL, content.StatusCode, err)
	}

	return &models.RawDocument{
		Body: body,
		Origin: &models.Origin{
			Platform:  PlatformFandom,
			Board:     t.board,
			Permalink: t.link,
			Title:     firstNonEmpty(resp.Parse.Title, strings.ReplaceAll(t.id, "_", " ")),
		},
	}, nil
}
