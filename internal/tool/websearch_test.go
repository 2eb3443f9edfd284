package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fdark-mode">Dark mode guide</a>
  <a class="result__snippet">How to add a <b>dark mode</b> toggle to your app.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.org/themes">Theming basics</a>
  <a class="result__snippet">An intro to CSS themes.</a>
</div>
</body></html>`

func newSearchTool(serverURL string) *WebSearchTool {
	t := NewWebSearchTool()
	t.baseURL = serverURL
	return t
}

func TestWebSearch_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dark mode toggle", r.URL.Query().Get("q"))
		w.Write([]byte(searchResultsPage))
	}))
	defer srv.Close()

	tool := newSearchTool(srv.URL)
	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"query":"dark mode toggle"}`), nil)
	require.NoError(t, err)

	assert.Contains(t, result.Output, "Dark mode guide")
	assert.Contains(t, result.Output, "https://example.com/dark-mode")
	assert.Contains(t, result.Output, "**dark mode**")
	assert.Contains(t, result.Output, "https://example.org/themes")
	assert.Equal(t, 2, result.Metadata["count"])
}

func TestWebSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	tool := newSearchTool(srv.URL)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"nothing"}`), nil)
	require.NoError(t, err)
	assert.Contains(t, result.Output, "No results found")
}

func TestWebSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tool := newSearchTool(srv.URL)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"x"}`), nil)
	assert.Error(t, err)
}

func TestWebSearch_EmptyQuery(t *testing.T) {
	tool := NewWebSearchTool()

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"  "}`), nil)
	assert.Error(t, err)
}

func TestWebSearch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchResultsPage))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tool := newSearchTool(srv.URL)
	_, err := tool.Execute(ctx, json.RawMessage(`{"query":"x"}`), nil)
	assert.Error(t, err)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://example.com/page",
		resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage"))
	assert.Equal(t, "https://direct.example.com",
		resolveRedirect("https://direct.example.com"))
}
