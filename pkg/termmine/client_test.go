package termmine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)

		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": content}},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		}
	}))
}

func newTestClient(baseURL string) *Client {
	return New(Config{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
	})
}

func TestExtractTermsShortInput(t *testing.T) {
	t.Parallel()

	c := newTestClient("http://127.0.0.1:0")
	assert.Empty(t, c.ExtractTerms(context.Background(), "too short"))
}

func TestExtractTerms(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, http.StatusOK, `[{"term":"DeFi","desc":"Decentralized finance"},{"term":"NFT","desc":"Non-fungible token"}]`)
	defer srv.Close()

	c := newTestClient(srv.URL)
	got := c.ExtractTerms(context.Background(), strings.Repeat("blockchain text ", 10))
	require.Len(t, got, 2)
	assert.Equal(t, "DeFi", got[0].Term)
	assert.Equal(t, "Non-fungible token", got[1].Description)
}

func TestExtractTermsStripsCodeFences(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, http.StatusOK, "```json\n[{\"term\":\"CRISPR\",\"desc\":\"Gene editing technique\"}]\n```")
	defer srv.Close()

	c := newTestClient(srv.URL)
	got := c.ExtractTerms(context.Background(), strings.Repeat("genetics text ", 10))
	require.Len(t, got, 1)
	assert.Equal(t, "CRISPR", got[0].Term)
}

func TestExtractTermsDegradesToEmpty(t *testing.T) {
	t.Parallel()

	longText := strings.Repeat("some domain text ", 10)

	// Non-success status.
	srv := chatServer(t, http.StatusBadGateway, "")
	c := newTestClient(srv.URL)
	assert.Empty(t, c.ExtractTerms(context.Background(), longText))
	srv.Close()

	// Unparseable payload.
	srv = chatServer(t, http.StatusOK, "this is not json")
	c = newTestClient(srv.URL)
	assert.Empty(t, c.ExtractTerms(context.Background(), longText))
	srv.Close()

	// Transport failure.
	c = newTestClient("http://127.0.0.1:1")
	assert.Empty(t, c.ExtractTerms(context.Background(), longText))
}

func TestExtractTermsTruncatesInput(t *testing.T) {
	t.Parallel()

	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotLen = len(req.Messages[0].Content)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "[]"}}},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "m", MaxInputChars: 100})
	c.ExtractTerms(context.Background(), strings.Repeat("x", 5000))

	// Prompt template plus at most 100 chars of excerpt.
	assert.Less(t, gotLen, len(promptTemplate)+150)
}

func TestExtractTermsCountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotText = req.Messages[0].Content
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "[]"}}},
		})
	}))
	defer srv.Close()

	// 60 characters, 180 bytes. A byte-based floor of 100 would pass this
	// through; a byte-based cut at 50 would split a rune.
	text := strings.Repeat("語", 60)

	c := New(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "m", MinTextChars: 100, MaxInputChars: 50000})
	assert.Empty(t, c.ExtractTerms(context.Background(), text))
	assert.Empty(t, gotText)

	c = New(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "m", MinTextChars: 10, MaxInputChars: 50})
	c.ExtractTerms(context.Background(), text)
	require.NotEmpty(t, gotText)
	assert.True(t, utf8.ValidString(gotText))
	assert.Contains(t, gotText, strings.Repeat("語", 50))
	assert.NotContains(t, gotText, strings.Repeat("語", 51))
}
