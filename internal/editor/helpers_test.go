package editor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newImageServer serves img at /photo.png and 404 elsewhere.
func newImageServer(t *testing.T, img []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type mockBackend struct {
	mu         sync.Mutex
	out        Output
	err        error
	configured bool
	calls      int
	imageURL   string
	prompt     string
}

func (m *mockBackend) Edit(_ context.Context, imageURL, prompt string) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.imageURL = imageURL
	m.prompt = prompt
	return m.out, m.err
}

func (m *mockBackend) Configured() bool { return m.configured }

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
