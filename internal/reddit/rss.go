package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

const defaultRSSBaseURL = "https://www.reddit.com"

// RSSFetcher reads the public Atom feed of a subreddit. It needs no
// credentials, which makes it the fallback when no Reddit app is configured.
type RSSFetcher struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	parser     *gofeed.Parser
}

// NewRSSFetcher creates an RSSFetcher that identifies itself with userAgent.
func NewRSSFetcher(userAgent string) *RSSFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &RSSFetcher{
		baseURL:    defaultRSSBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		parser:     gofeed.NewParser(),
	}
}

// NewRSSFetcherWithBaseURL creates a fetcher pointing at a custom host (for testing).
func NewRSSFetcherWithBaseURL(userAgent, baseURL string) *RSSFetcher {
	f := NewRSSFetcher(userAgent)
	f.baseURL = strings.TrimRight(baseURL, "/")
	return f
}

// FetchNew returns up to limit of the newest posts in subreddit.
func (f *RSSFetcher) FetchNew(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/new/.rss?limit=%d", f.baseURL, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s feed: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetching r/%s feed: unexpected status %d: %s", subreddit, resp.StatusCode, string(body))
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing r/%s feed: %w", subreddit, err)
	}

	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(posts) >= limit {
			break
		}
		posts = append(posts, postFromItem(item))
	}
	return posts, nil
}

func postFromItem(item *gofeed.Item) Post {
	p := Post{
		ID:    strings.TrimPrefix(item.GUID, "t3_"),
		Title: item.Title,
		URL:   linkFromContent(item.Content),
	}
	if p.URL == "" {
		p.URL = item.Link
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		p.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
	}

	switch {
	case item.PublishedParsed != nil:
		p.CreatedUTC = float64(item.PublishedParsed.Unix())
	case item.UpdatedParsed != nil:
		p.CreatedUTC = float64(item.UpdatedParsed.Unix())
	default:
		p.CreatedUTC = float64(time.Now().Unix())
	}
	return p
}

// linkFromContent returns the href of the "[link]" anchor Reddit embeds in
// every Atom entry. For link posts it is the submitted URL; for self posts it
// points back at the comments page.
func linkFromContent(content string) string {
	if content == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var found string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && strings.TrimSpace(textOf(n)) == "[link]" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					found = attr.Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
