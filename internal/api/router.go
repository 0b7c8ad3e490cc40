package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fixtral/fixtral/internal/editor"
	"github.com/fixtral/fixtral/internal/reddit"
)

const maxRequestBodySize = 1 << 20 // 1MB

// PostLister serves the image-request feed.
type PostLister interface {
	Posts(ctx context.Context, refresh bool) ([]reddit.Post, error)
	Invalidate()
}

// PromptGenerator writes an edit prompt for a request.
type PromptGenerator interface {
	Generate(ctx context.Context, title, imageURL string) (string, error)
}

// ImageEditor runs an edit on one provider.
type ImageEditor interface {
	Edit(ctx context.Context, req editor.Request) (editor.Result, error)
}

// Deps holds the services behind the HTTP API.
type Deps struct {
	Feed    PostLister
	Prompts PromptGenerator
	Editor  ImageEditor
}

// NewHandler returns the HTTP API. Legacy route names are served alongside
// the short aliases.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(recordMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.Get("/health", handleHealth)
	r.Get("/metrics", handleMetrics)

	feed := handleFeed(deps.Feed)
	r.Get("/api/photoshop-request", feed)
	r.Get("/api/feed", feed)
	r.Delete("/api/feed/cache", handleClearFeed(deps.Feed))

	prompt := handleGeneratePrompt(deps.Prompts)
	r.Post("/api/generate-prompt", prompt)
	r.Post("/api/prompt", prompt)

	edit := handleEdit(deps.Editor)
	r.Post("/api/nano-banana", edit)
	r.Post("/api/edit", edit)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func httpError(w http.ResponseWriter, code int, msg, details string) {
	writeJSON(w, code, errorResponse{Error: msg, Details: details})
}
