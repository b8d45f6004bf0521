package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zombar/creepyparser/internal/models"
)

var (
	redditHosts = map[string]bool{
		"reddit.com": true, "www.reddit.com": true, "old.reddit.com": true,
		"new.reddit.com": true, "np.reddit.com": true, "m.reddit.com": true,
	}
	redditName = regexp.MustCompile(`^[A-Za-z0-9_]{2,21}$`)
	redditID   = regexp.MustCompile(`^[a-z0-9]{1,12}$`)
)

// parseReddit accepts /r/{board}/comments/{id}[/{slug}]
func parseReddit(host string, segments []string) (*target, bool) {
	if !redditHosts[host] || len(segments) < 4 {
		return nil, false
	}
	if !strings.EqualFold(segments[0], "r") || segments[2] != "comments" {
		return nil, false
	}
	board, id := segments[1], strings.ToLower(segments[3])
	if !redditName.MatchString(board) || !redditID.MatchString(id) {
		return nil, false
	}
	return &target{
		platform: PlatformReddit,
		board:    board,
		id:       id,
		link:     fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", board, id),
	}, true
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title        string `json:"title"`
	Selftext     string `json:"selftext"`
	SelftextHTML string `json:"selftext_html"`
	Author       string `json:"author"`
	Subreddit    string `json:"subreddit"`
	Permalink    string `json:"permalink"`
}

func (r *Resolver) resolveReddit(ctx context.Context, t *target) (*models.RawDocument, error) {
	apiURL := fmt.Sprintf("%s/r/%s/comments/%s.json?raw_json=1",
		r.cfg.RedditAPIBase, url.PathEscape(t.board), url.PathEscape(t.id))

	content, err := r.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	// the thread endpoint returns [post listing, comment listing]
	var listings []redditListing
	if err := content.DecodeJSON(&listings); err != nil {
		return nil, err
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, models.NewRetrievalError(models.RetrievalMalformed, apiURL, content.StatusCode,
			fmt.Errorf("thread listing has no post"))
	}
	post := listings[0].Data.Children[0].Data

	body := strings.TrimSpace(post.Selftext)
	if body == "" && post.SelftextHTML != "" {
		body, err = htmlParagraphs(post.SelftextHTML, "")
		if err != nil {
			return nil, models.NewRetrievalError(models.RetrievalMalformed, apiURL, content.StatusCode, err)
		}
	}
	if body == "[removed]" || body == "[deleted]" {
		return nil, models.NewRetrievalError(models.RetrievalNotFound, apiURL, content.StatusCode,
			fmt.Errorf("post body is %s", body))
	}
	if body == "" {
		return nil, models.NewRetrievalError(models.RetrievalMalformed, apiURL, content.StatusCode,
			fmt.Errorf("post has no text body"))
	}

	origin := &models.Origin{
		Platform:  PlatformReddit,
		Board:     firstNonEmpty(post.Subreddit, t.board),
		Author:    post.Author,
		Permalink: t.link,
		Title:     post.Title,
	}
	if post.Author == "[deleted]" {
		origin.Author = ""
	}
	if post.Permalink != "" {
		origin.Permalink = "https://www.reddit.com" + post.Permalink
	}

	return &models.RawDocument{Body: body, Origin: origin}, nil
}

// htmlParagraphs isolates block text from an HTML fragment. scope limits the
// search to a container selector when non-empty.
func htmlParagraphs(fragment, scope string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Selection
	if scope != "" {
		root = doc.Find(scope).First()
		if root.Length() == 0 {
			return "", fmt.Errorf("no %s container", scope)
		}
	}
	root.Find("script, style, noscript, table, aside, figure, sup.reference, .references, .reference, .toc, .navbox, .mw-editsection, .mw-empty-elt").Remove()
	// rendered reddit spoilers go back to their markdown markers so the
	// spoiler extractor still finds them
	root.Find(".md-spoiler-text").Each(func(_ int, s *goquery.Selection) {
		s.SetText(">!" + s.Text() + "!<")
	})

	var paragraphs []string
	root.Find("p, pre, h1, h2, h3, h4, h5, h6, li").Each(func(i int, s *goquery.Selection) {
		// list items that wrap paragraphs are collected through the paragraphs
		if goquery.NodeName(s) == "li" && s.Find("p").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		if text := strings.TrimSpace(root.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
