package editor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	downloadTimeout  = 30 * time.Second
	maxImageBytes    = 20 << 20
	fallbackMimeType = "image/jpeg"
)

var extMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var mimeExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func newDownloadClient() *http.Client {
	return &http.Client{Timeout: downloadTimeout}
}

// fetchImage downloads the source image and reports its MIME type.
func fetchImage(ctx context.Context, client *http.Client, p Provider, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", &UpstreamError{Provider: p, Err: fmt.Errorf("invalid image url: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &UpstreamError{Provider: p, Err: fmt.Errorf("downloading image: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", &UpstreamError{
			Provider: p,
			Err:      fmt.Errorf("downloading image: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", &UpstreamError{Provider: p, Err: fmt.Errorf("reading image: %w", err)}
	}
	if len(data) > maxImageBytes {
		return nil, "", &UpstreamError{Provider: p, Err: fmt.Errorf("image exceeds %d bytes", maxImageBytes)}
	}
	if len(data) == 0 {
		return nil, "", &UpstreamError{Provider: p, Err: fmt.Errorf("downloaded image is empty")}
	}

	return data, detectMimeType(data, imageURL), nil
}

// detectMimeType sniffs the bytes, then falls back to the URL extension, then
// to JPEG.
func detectMimeType(data []byte, imageURL string) string {
	if mt := http.DetectContentType(data); strings.HasPrefix(mt, "image/") {
		return mt
	}
	if u, err := url.Parse(imageURL); err == nil {
		if mt, ok := extMimeTypes[strings.ToLower(path.Ext(u.Path))]; ok {
			return mt
		}
	}
	return fallbackMimeType
}

func extensionFor(mimeType string) string {
	if ext, ok := mimeExts[mimeType]; ok {
		return ext
	}
	return ".jpg"
}
