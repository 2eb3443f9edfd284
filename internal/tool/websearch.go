package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const websearchDescription = `Searches the web and returns a short list of results.

Usage notes:
  - Provide a plain search query; operators are passed through as-is.
  - Returns up to 5 results, each with title, URL and a markdown snippet.
  - Results reflect a public search index and may be stale.`

const (
	searchTimeout     = 15 * time.Second
	maxSearchResults  = 5
	maxSearchBodySize = 2 * 1024 * 1024 // 2MB
)

// WebSearchTool implements web search over DuckDuckGo's HTML endpoint.
type WebSearchTool struct {
	baseURL string
	client  *http.Client
}

// WebSearchInput represents the input for the websearch tool.
type WebSearchInput struct {
	Query string `json:"query"`
}

// searchResult is one extracted search hit.
type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

// NewWebSearchTool creates a new websearch tool.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		baseURL: "https://html.duckduckgo.com/html/",
		client:  &http.Client{Timeout: searchTimeout},
	}
}

func (t *WebSearchTool) Name() string        { return "websearch" }
func (t *WebSearchTool) Description() string { return websearchDescription }

func (t *WebSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "The search query"
    }
  },
  "required": ["query"]
}`)
}

func (t *WebSearchTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var in WebSearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid websearch input: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	results, err := t.search(ctx, in.Query)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Result{Output: fmt.Sprintf("No results found for %q.", in.Query)}, nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}

	return &Result{
		Output:   sb.String(),
		Metadata: map[string]any{"query": in.Query, "count": len(results)},
	}, nil
}

func (t *WebSearchTool) search(ctx context.Context, query string) ([]searchResult, error) {
	reqURL := t.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "appforge/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	converter := md.NewConverter("", true, nil)

	var results []searchResult
	doc.Find("div.result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(results) >= maxSearchResults {
			return false
		}

		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}

		snippet := ""
		if html, err := sel.Find(".result__snippet").First().Html(); err == nil && html != "" {
			if converted, err := converter.ConvertString(html); err == nil {
				snippet = strings.TrimSpace(converted)
			}
		}

		results = append(results, searchResult{
			Title:   title,
			URL:     resolveRedirect(href),
			Snippet: snippet,
		})
		return true
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=<target>).
func resolveRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
