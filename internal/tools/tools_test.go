package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&WebSearchTool{})
	r.Register(&DocExtractTool{})

	_, ok := r.Get("web_search")
	assert.True(t, ok)
	_, ok = r.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"doc_extract", "web_search"}, r.Names())
}

const searchPage = `<html><body>
<div class="result">
  <div class="result__body">
    <a class="result__a" href="https://example.com/a">First <b>Result</b></a>
    <div class="result__snippet">Snippet for the first result.</div>
  </div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/b">Second Result</a>
  <div class="result__snippet">Second snippet.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/c">Third Result</a>
</div>
</body></html>`

func TestWebSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	tool := &WebSearchTool{BaseURL: srv.URL}
	out, logs, err := tool.Execute(context.Background(), map[string]any{"query": "b-tree vs lsm"})
	require.NoError(t, err)
	assert.Equal(t, "b-tree vs lsm", gotQuery)
	text, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, text, "First Result")
	assert.Contains(t, text, "Snippet for the first result.")
	assert.Contains(t, text, "Third Result")
	assert.Contains(t, logs, "results=3")
}

func TestWebSearchMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	tool := &WebSearchTool{BaseURL: srv.URL}
	out, _, err := tool.Execute(context.Background(), map[string]any{
		"query":       "x",
		"max_results": float64(1),
	})
	require.NoError(t, err)
	text := out.(string)
	assert.Contains(t, text, "First Result")
	assert.NotContains(t, text, "Second Result")
}

func TestWebSearchMissingQuery(t *testing.T) {
	tool := &WebSearchTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestWebSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tool := &WebSearchTool{BaseURL: srv.URL}
	_, _, err := tool.Execute(context.Background(), map[string]any{"query": "x"})
	assert.Error(t, err)
}

func TestDocExtractMissingInput(t *testing.T) {
	tool := &DocExtractTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestDocExtractInvalidBase64(t *testing.T) {
	tool := &DocExtractTool{}
	_, _, err := tool.Execute(context.Background(), map[string]any{"data_base64": "!!not base64!!"})
	assert.Error(t, err)
}

func TestDocExtractTooLarge(t *testing.T) {
	tool := &DocExtractTool{MaxBytes: 4}
	_, _, err := tool.Execute(context.Background(), map[string]any{"data_base64": "AAAAAAAAAAAAAAAA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}
