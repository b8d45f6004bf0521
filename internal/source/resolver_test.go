package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/creepyparser/internal/models"
	"github.com/zombar/creepyparser/internal/retrieval"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := retrieval.New(retrieval.Config{
		Timeout:        time.Second,
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
	return NewResolver(client, Config{RedditAPIBase: srv.URL, FandomAPIBase: srv.URL}), srv
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.AnalysisRequest
		invalid bool
	}{
		{"text", models.AnalysisRequest{Text: "Once upon a time"}, false},
		{"neither", models.AnalysisRequest{}, true},
		{"whitespace only", models.AnalysisRequest{Text: "   ", URL: " "}, true},
		{"both", models.AnalysisRequest{Text: "story", URL: "https://www.reddit.com/r/nosleep/comments/abc123/x/"}, true},
		{"unsupported site", models.AnalysisRequest{URL: "https://not-a-supported-site.example/post/1"}, true},
		{"not a url", models.AnalysisRequest{URL: "reddit dot com"}, true},
		{"ftp scheme", models.AnalysisRequest{URL: "ftp://www.reddit.com/r/nosleep/comments/abc123/"}, true},
		{"reddit front page", models.AnalysisRequest{URL: "https://www.reddit.com/r/nosleep/"}, true},
		{"reddit thread", models.AnalysisRequest{URL: "https://www.reddit.com/r/creepypasta/comments/1pq064y/every_year_we_have_someone_new/"}, false},
		{"old reddit thread", models.AnalysisRequest{URL: "https://old.reddit.com/r/nosleep/comments/abc123"}, false},
		{"reddit lookalike", models.AnalysisRequest{URL: "https://reddit.com.evil.example/r/nosleep/comments/abc123/"}, true},
		{"fandom page", models.AnalysisRequest{URL: "https://creepypasta.fandom.com/wiki/Ben_Drowned"}, false},
		{"fandom non wiki path", models.AnalysisRequest{URL: "https://creepypasta.fandom.com/f/p/123"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.invalid {
				assert.ErrorIs(t, err, models.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, PlatformText, Platform(models.AnalysisRequest{Text: "x"}))
	assert.Equal(t, PlatformReddit, Platform(models.AnalysisRequest{URL: "https://reddit.com/r/nosleep/comments/abc123/"}))
	assert.Equal(t, PlatformFandom, Platform(models.AnalysisRequest{URL: "https://creepypasta.fandom.com/wiki/Jeff"}))
	assert.Equal(t, "invalid", Platform(models.AnalysisRequest{}))
}

func TestResolveText(t *testing.T) {
	r := NewResolver(nil, Config{})
	doc, err := r.Resolve(context.Background(), models.AnalysisRequest{Text: "The lights went out."})
	require.NoError(t, err)
	assert.Equal(t, "The lights went out.", doc.Body)
	assert.Nil(t, doc.Origin)
}

func TestResolveInvalidNeverFetches(t *testing.T) {
	called := false
	r, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://not-a-supported-site.example/post/1"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.False(t, called)
}

const redditThread = `[
  {"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {
    "title": "Every year we have someone new for Christmas",
    "selftext": "My family has a tradition.\n\nThis year it was my turn.",
    "selftext_html": null,
    "author": "night_owl",
    "subreddit": "creepypasta",
    "permalink": "/r/creepypasta/comments/1pq064y/every_year/"
  }}]}},
  {"kind": "Listing", "data": {"children": [{"kind": "t1", "data": {"body": "great story"}}]}}
]`

func TestResolveReddit(t *testing.T) {
	var path, rawQuery string
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		path, rawQuery = req.URL.Path, req.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(redditThread))
	})

	doc, err := r.Resolve(context.Background(), models.AnalysisRequest{
		URL: "https://www.reddit.com/r/creepypasta/comments/1pq064y/every_year_we_have_someone_new_for_christmas/",
	})
	require.NoError(t, err)

	assert.Equal(t, "/r/creepypasta/comments/1pq064y.json", path)
	assert.Equal(t, "raw_json=1", rawQuery)
	assert.Equal(t, "My family has a tradition.\n\nThis year it was my turn.", doc.Body)
	assert.NotContains(t, doc.Body, "great story")
	require.NotNil(t, doc.Origin)
	assert.Equal(t, PlatformReddit, doc.Origin.Platform)
	assert.Equal(t, "creepypasta", doc.Origin.Board)
	assert.Equal(t, "night_owl", doc.Origin.Author)
	assert.Equal(t, "https://www.reddit.com/r/creepypasta/comments/1pq064y/every_year/", doc.Origin.Permalink)
	assert.Equal(t, "Every year we have someone new for Christmas", doc.Origin.Title)
}

func TestResolveRedditHTMLFallback(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"data": {"children": [{"data": {
			"selftext": "",
			"selftext_html": "<div class=\"md\"><p>First paragraph.</p><p>Second &amp; last.</p></div>",
			"author": "someone", "subreddit": "nosleep"}}]}}]`))
	})

	doc, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://old.reddit.com/r/nosleep/comments/abc123/"})
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond & last.", doc.Body)
}

func TestResolveRedditHTMLFallbackKeepsSpoilers(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"data": {"children": [{"data": {
			"selftext": "",
			"selftext_html": "<div class=\"md\"><p>It was <span class=\"md-spoiler-text\">the tenant</span> all along.</p></div>",
			"author": "someone", "subreddit": "nosleep"}}]}}]`))
	})

	doc, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://www.reddit.com/r/nosleep/comments/abc123/"})
	require.NoError(t, err)
	assert.Equal(t, "It was >!the tenant!< all along.", doc.Body)
}

func TestResolveRedditFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   models.RetrievalKind
	}{
		{"removed post", 200, `[{"data": {"children": [{"data": {"selftext": "[removed]"}}]}}]`, models.RetrievalNotFound},
		{"deleted post", 200, `[{"data": {"children": [{"data": {"selftext": "[deleted]"}}]}}]`, models.RetrievalNotFound},
		{"empty listing", 200, `[]`, models.RetrievalMalformed},
		{"not json", 200, `<html>login wall</html>`, models.RetrievalMalformed},
		{"link post", 200, `[{"data": {"children": [{"data": {"selftext": "", "url": "https://i.redd.it/x.png"}}]}}]`, models.RetrievalMalformed},
		{"missing thread", 404, ``, models.RetrievalNotFound},
		{"blocked", 429, ``, models.RetrievalBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://www.reddit.com/r/nosleep/comments/abc123/"})
			var re *models.RetrievalError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.kind, re.Kind)
		})
	}
}

const fandomPage = `{"parse": {"title": "Ben Drowned", "pageid": 42, "text": "<div class=\"mw-parser-output\"><aside class=\"portable-infobox\"><p>Infobox junk</p></aside><p>I bought the cartridge at a yard sale.</p><table><tr><td>nav</td></tr></table><p>The old man said \"goodbye then\".<sup class=\"reference\">[1]</sup></p><h2>Part 2<span class=\"mw-editsection\">[edit]</span></h2><script>var x;</script></div>"}}`

func TestResolveFandom(t *testing.T) {
	var query map[string][]string
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		query = req.URL.Query()
		assert.Equal(t, "/api.php", req.URL.Path)
		w.Write([]byte(fandomPage))
	})

	doc, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://creepypasta.fandom.com/wiki/Ben_Drowned"})
	require.NoError(t, err)

	assert.Equal(t, []string{"parse"}, query["action"])
	assert.Equal(t, []string{"Ben_Drowned"}, query["page"])
	assert.Equal(t, []string{"2"}, query["formatversion"])

	assert.Equal(t, "I bought the cartridge at a yard sale.\n\nThe old man said \"goodbye then\".\n\nPart 2", doc.Body)
	assert.Equal(t, PlatformFandom, doc.Origin.Platform)
	assert.Equal(t, "creepypasta", doc.Origin.Board)
	assert.Equal(t, "Ben Drowned", doc.Origin.Title)
	assert.Equal(t, "https://creepypasta.fandom.com/wiki/Ben_Drowned", doc.Origin.Permalink)
}

func TestResolveFandomMissingPage(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"error": {"code": "missingtitle", "info": "The page you specified doesn't exist."}}`))
	})

	_, err := r.Resolve(context.Background(), models.AnalysisRequest{URL: "https://creepypasta.fandom.com/wiki/Nope"})
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalNotFound), "got %v", err)
}
