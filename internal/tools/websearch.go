package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// searchMaxBodyBytes limits the fetched result page size.
const searchMaxBodyBytes = 2 << 20

// WebSearchTool fetches search results for a query and returns a plain-text
// digest suitable for inclusion in a solve prompt.
// Inputs:
// - query: string (required)
// - max_results: number (optional; default 5)
type WebSearchTool struct {
	HTTPClient *http.Client
	// BaseURL overrides the search endpoint, mainly for tests.
	BaseURL string
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	query, _ := inputs["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, "", fmt.Errorf("missing query")
	}
	maxResults := 5
	if v, ok := inputs["max_results"].(float64); ok && v > 0 {
		maxResults = int(v)
	}

	base := t.BaseURL
	if base == "" {
		base = "https://html.duckduckgo.com/html/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "deepthink/1.0")

	client := t.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, searchMaxBodyBytes))
	if err != nil {
		return nil, "", err
	}

	results := extractResults(string(body), maxResults)
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.Snippet)
	}
	logs := fmt.Sprintf("query=%q results=%d", query, len(results))
	return strings.TrimSpace(b.String()), logs, nil
}

// SearchResult is one extracted search hit.
type SearchResult struct {
	Title   string
	Snippet string
}

// extractResults pulls result titles and snippets out of the search page
// HTML. It keys off the result markup classes and falls back to links.
func extractResults(page string, max int) []SearchResult {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}
	var out []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || len(out) >= max {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result__a") {
			title := nodeText(n)
			snippet := ""
			if s := findSibling(n, "result__snippet"); s != nil {
				snippet = nodeText(s)
			}
			if title != "" {
				out = append(out, SearchResult{Title: title, Snippet: snippet})
			}
		}
		for c := n.FirstChild; c != nil && len(out) < max; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, "class") {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// findSibling searches the enclosing result block for a node with the given
// class.
func findSibling(n *html.Node, class string) *html.Node {
	block := n.Parent
	for block != nil && !hasClass(block, "result") && !hasClass(block, "result__body") {
		block = block.Parent
	}
	if block == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x == nil || found != nil {
			return
		}
		if x.Type == html.ElementNode && hasClass(x, class) {
			found = x
			return
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)
	return found
}

// nodeText collects the text content of a node with compacted whitespace.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
