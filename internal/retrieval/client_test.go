package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/creepyparser/internal/models"
)

func testConfig() Config {
	return Config{
		Timeout:        50 * time.Millisecond,
		MaxAttempts:    4,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxBodyBytes:   1 << 10,
	}
}

// hangingServer stalls the first n requests past the attempt timeout
func hangingServer(t *testing.T, n int32, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= n {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFetchRecoversAfterTimeouts(t *testing.T) {
	srv, calls := hangingServer(t, 3, `{"ok":true}`)

	var mu sync.Mutex
	var outcomes []string
	c := New(testConfig()).OnAttempt(func(o string) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	})

	content, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(content.Body))
	assert.Equal(t, http.StatusOK, content.StatusCode)
	assert.Equal(t, "application/json", content.ContentType)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []string{OutcomeTransient, OutcomeTransient, OutcomeTransient, OutcomeSuccess}, outcomes)
}

func TestFetchExceedingRetryCapIsTimeout(t *testing.T) {
	srv, calls := hangingServer(t, 100, "")

	_, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalTimeout), "got %v", err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		kind  models.RetrievalKind
		calls int32
	}{
		{"not found", http.StatusNotFound, models.RetrievalNotFound, 1},
		{"gone", http.StatusGone, models.RetrievalNotFound, 1},
		{"forbidden", http.StatusForbidden, models.RetrievalBlocked, 1},
		{"rate limited", http.StatusTooManyRequests, models.RetrievalBlocked, 1},
		{"bad request", http.StatusBadRequest, models.RetrievalMalformed, 1},
		{"server error retried", http.StatusBadGateway, models.RetrievalTimeout, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			_, err := New(testConfig()).Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, models.IsRetrievalKind(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestFetchBlockedDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	var re *models.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusTooManyRequests, re.StatusCode)
	assert.Contains(t, strings.ToLower(re.Detail()), "blocked")
}

func TestFetchBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2<<10)))
	}))
	defer srv.Close()

	_, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalMalformed), "got %v", err)
}

func TestFetchCancelled(t *testing.T) {
	srv, _ := hangingServer(t, 100, "")

	cfg := testConfig()
	cfg.Timeout = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New(cfg).Fetch(ctx, srv.URL)
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalCancelled), "got %v", err)
}

func TestFetchDeadlineIsTimeout(t *testing.T) {
	srv, _ := hangingServer(t, 100, "")

	cfg := testConfig()
	cfg.Timeout = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(cfg).Fetch(ctx, srv.URL)
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalTimeout), "got %v", err)
}

func TestFetchSendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	_, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, ua)
}

func TestDecodeJSONMalformed(t *testing.T) {
	content := &StructuredContent{URL: "http://x", StatusCode: 200, Body: []byte("<html>")}
	var v map[string]any
	err := content.DecodeJSON(&v)
	assert.True(t, models.IsRetrievalKind(err, models.RetrievalMalformed))
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{})
	cfg := c.Config()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
}
