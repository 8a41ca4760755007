package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultBaseURL      = "https://duckduckgo.com/html/"
	defaultUserAgent    = "sage-bot/1.0"
	defaultMaxBodyBytes = 2 * 1024 * 1024
)

// Result is a single search hit.
type Result struct {
	Title string
	URL   string
}

// Client queries the DuckDuckGo HTML endpoint and extracts result links
// from the returned page.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	maxBodyBytes int64
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		userAgent:    userAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Search returns up to limit results for the query, in page order. Fewer
// results than limit, or none at all, is not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid search base url: %w", err)
	}
	u := *base
	qs := u.Query()
	qs.Set("q", query)
	u.RawQuery = qs.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return parseResults(body, limit)
}

func parseResults(page []byte, limit int) ([]Result, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var out []Result

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil || len(out) >= limit {
			return
		}

		// Result title links look like: <a class="result__a" href="...">Title</a>
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attr(n, "href")
			title := strings.TrimSpace(textContent(n))
			if href != "" && title != "" {
				out = append(out, Result{
					Title: title,
					URL:   normalizeResultURL(href),
				})
			}
		}

		for child := n.FirstChild; child != nil && len(out) < limit; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return out, nil
}

// normalizeResultURL unwraps DuckDuckGo's /l/?uddg=<encoded> redirect links.
func normalizeResultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}

	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	return href
}

func hasClass(n *html.Node, want string) bool {
	for _, part := range strings.Fields(attr(n, "class")) {
		if part == want {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x == nil {
			return
		}
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for child := x.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
