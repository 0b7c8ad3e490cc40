package reddit

import (
	"context"
	"strings"
)

// Post is one image-editing request from the subreddit feed.
type Post struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Author     string  `json:"author"`
	CreatedUTC float64 `json:"created_utc"`
}

// Fetcher pulls the newest posts from a subreddit.
type Fetcher interface {
	FetchNew(ctx context.Context, subreddit string, limit int) ([]Post, error)
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// IsImageURL reports whether u points directly at an image file. The
// extension match is case-sensitive: "a.JPG" is not an image link.
func IsImageURL(u string) bool {
	if u == "" {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}

// FilterImages returns the posts whose URL is a direct image link, in their
// original order. The result is never nil.
func FilterImages(posts []Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if IsImageURL(p.URL) {
			out = append(out, p)
		}
	}
	return out
}
