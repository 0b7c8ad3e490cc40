package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultAuthURL   = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "fixtral:1.0.0"

	// Reddit allows 100 OAuth requests per minute per client.
	requestInterval = 600 * time.Millisecond
	requestBurst    = 10

	// tokenSkew renews the bearer token slightly before Reddit expires it.
	tokenSkew = time.Minute
)

// Credentials identifies a Reddit "script" application and the account it
// acts on behalf of.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Complete reports whether every field needed for the password grant is set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// Client reads subreddit listings through the Reddit OAuth API.
type Client struct {
	creds      Credentials
	authURL    string
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Client for the given credentials.
func NewClient(creds Credentials) *Client {
	if creds.UserAgent == "" {
		creds.UserAgent = defaultUserAgent
	}
	return &Client{
		creds:      creds,
		authURL:    defaultAuthURL,
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(requestInterval), requestBurst),
	}
}

// NewClientWithBaseURLs creates a client pointing at custom endpoints (for testing).
func NewClientWithBaseURLs(creds Credentials, authURL, apiURL string) *Client {
	c := NewClient(creds)
	c.authURL = authURL
	c.apiURL = strings.TrimRight(apiURL, "/")
	return c
}

// tokenResponse mirrors the JSON returned by the access_token endpoint.
// Reddit reports bad credentials with 200 and an "error" field.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// listing mirrors the subset of a Reddit listing used here.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				URL        string  `json:"url"`
				Author     string  `json:"author"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchNew returns up to limit of the newest posts in subreddit.
func (c *Client) FetchNew(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/r/%s/new?limit=%d&raw_json=1", c.apiURL, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetToken()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetching r/%s: unexpected status %d: %s", subreddit, resp.StatusCode, string(body))
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		d := child.Data
		posts = append(posts, Post{
			ID:         d.ID,
			Title:      d.Title,
			URL:        d.URL,
			Author:     d.Author,
			CreatedUTC: d.CreatedUTC,
		})
	}
	return posts, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if !c.creds.Complete() {
		return "", fmt.Errorf("reddit credentials are not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("access token: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding access token: %w", err)
	}
	if tr.AccessToken == "" {
		reason := tr.Error
		if reason == "" {
			reason = "empty access_token"
		}
		return "", fmt.Errorf("access token rejected: %s", reason)
	}

	c.token = tr.AccessToken
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl > tokenSkew {
		ttl -= tokenSkew
	}
	c.tokenExpiry = time.Now().Add(ttl)
	return c.token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
