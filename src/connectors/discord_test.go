package connectors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestNotifier(url string) *DiscordNotifier {
	restyClient := resty.New().
		SetRetryCount(2).
		SetRetryWaitTime(time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Millisecond).
		AddRetryCondition(isRetryableResp)
	return &DiscordNotifier{
		webhookURL: url,
		http:       restyClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        nullEntry(),
	}
}

func TestIsRetryableResp(t *testing.T) {
	require.True(t, isRetryableResp(nil, io.ErrUnexpectedEOF))
	require.False(t, isRetryableResp(nil, nil))

	for code, want := range map[int]bool{200: false, 204: false, 400: false, 408: true, 429: true, 500: true, 503: true} {
		resp := &resty.Response{RawResponse: &http.Response{StatusCode: code}}
		assert.Equal(t, want, isRetryableResp(resp, nil), "status %d", code)
	}
}

func TestDiscordNotifier_Text(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, body["content"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := newTestNotifier(server.URL)
	require.NoError(t, n.Text(context.Background(), "PROBE BTCUSDT LONG"))
	require.Equal(t, []string{"PROBE BTCUSDT LONG"}, got)
}

func TestDiscordNotifier_TextRetriesOn5xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, newTestNotifier(server.URL).Text(context.Background(), "hello"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDiscordNotifier_TextClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	}))
	defer server.Close()

	err := newTestNotifier(server.URL).Text(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestDiscordNotifier_TextSplitsLongContent(t *testing.T) {
	var sizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sizes = append(sizes, len([]rune(body["content"])))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	line := strings.Repeat("x", 99) + "\n"
	require.NoError(t, newTestNotifier(server.URL).Text(context.Background(), strings.Repeat(line, 45)))
	require.Len(t, sizes, 3)
	for _, s := range sizes {
		assert.LessOrEqual(t, s, discordContentLimit)
	}
	assert.Equal(t, 4500, sizes[0]+sizes[1]+sizes[2])
}

func TestDiscordNotifier_File(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "daily report", r.FormValue("content"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "report_2024-01-01.csv", hdr.Filename)
		assert.Equal(t, "a,b\n1,2\n", string(data))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestNotifier(server.URL).File(context.Background(), "report_2024-01-01.csv", []byte("a,b\n1,2\n"), "daily report")
	require.NoError(t, err)
}

func TestDiscordNotifier_Disabled(t *testing.T) {
	n := NewDiscordNotifier(Config{}, nullEntry())
	require.False(t, n.Enabled())
	require.NoError(t, n.Text(context.Background(), "ignored"))
	require.NoError(t, n.File(context.Background(), "x.csv", nil, ""))
}

func TestDiscordNotifier_RateLimitHonoursContext(t *testing.T) {
	n := newTestNotifier("http://127.0.0.1:0")
	n.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	n.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, n.Text(ctx, "blocked"))
}
