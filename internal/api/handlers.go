package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fixtral/fixtral/internal/editor"
	"github.com/fixtral/fixtral/internal/prompt"
	"github.com/fixtral/fixtral/internal/reddit"
)

func handleFeed(feed PostLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

		posts, err := feed.Posts(r.Context(), refresh)
		if err != nil {
			slog.Error("fetching posts failed", "error", err, "refresh", refresh)
			httpError(w, http.StatusInternalServerError, "Failed to fetch posts", err.Error())
			return
		}
		if posts == nil {
			posts = []reddit.Post{}
		}

		writeJSON(w, http.StatusOK, posts)
	}
}

// handleClearFeed drops the cached feed. It is idempotent.
func handleClearFeed(feed PostLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feed.Invalidate()
		w.WriteHeader(http.StatusNoContent)
	}
}

type promptRequest struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

type promptResponse struct {
	Prompt string `json:"prompt"`
}

func handleGeneratePrompt(gen PromptGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req promptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if req.Title == "" || req.ImageURL == "" {
			httpError(w, http.StatusBadRequest, "Missing title or imageUrl", "")
			return
		}

		out, err := gen.Generate(r.Context(), req.Title, req.ImageURL)
		if errors.Is(err, prompt.ErrMissingInput) {
			httpError(w, http.StatusBadRequest, "Missing title or imageUrl", "")
			return
		}
		if err != nil {
			slog.Error("generating prompt failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to generate prompt", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, promptResponse{Prompt: out})
	}
}

type editRequest struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
	Provider string `json:"provider"`
}

type editResponse struct {
	ProcessedImageURL string `json:"processedImageUrl"`
	EditedImage       string `json:"editedImage"`
	Provider          string `json:"provider"`
	RawModelText      string `json:"rawModelText,omitempty"`
}

func handleEdit(ed ImageEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if req.ImageURL == "" || req.Prompt == "" {
			httpError(w, http.StatusBadRequest, "Missing imageUrl or prompt", "")
			return
		}
		provider, err := editor.ParseProvider(req.Provider)
		if err != nil {
			httpError(w, http.StatusBadRequest, fmt.Sprintf("Unknown provider: %s", req.Provider), "")
			return
		}

		res, err := ed.Edit(r.Context(), editor.Request{
			ImageURL: req.ImageURL,
			Prompt:   req.Prompt,
			Provider: provider,
		})
		if err != nil {
			code, msg, details := editFailure(provider, err)
			slog.Error("image edit failed", "provider", provider, "status", code, "error", err)
			httpError(w, code, msg, details)
			return
		}

		writeJSON(w, http.StatusOK, editResponse{
			ProcessedImageURL: res.Image,
			EditedImage:       res.Image,
			Provider:          string(res.Provider),
			RawModelText:      res.RawText,
		})
	}
}

// editFailure maps an editor error to a status code and response body.
func editFailure(p editor.Provider, err error) (int, string, string) {
	var upErr *editor.UpstreamError
	var procErr *editor.ProcessError
	var noImg *editor.NoImageError

	switch {
	case errors.Is(err, editor.ErrMissingInput):
		return http.StatusBadRequest, "Missing imageUrl or prompt", ""
	case errors.Is(err, editor.ErrUnknownProvider):
		return http.StatusBadRequest, fmt.Sprintf("Unknown provider: %s", p), ""
	case errors.Is(err, editor.ErrNotConfigured):
		return http.StatusInternalServerError, fmt.Sprintf("%s is not configured", p), ""
	case errors.As(err, &upErr) && upErr.RateLimited():
		return http.StatusTooManyRequests, "Rate limited by provider", upErr.Details()
	case errors.As(err, &upErr):
		return http.StatusInternalServerError, "Failed to edit image", upErr.Details()
	case errors.As(err, &procErr):
		details := procErr.Stderr
		if details == "" {
			details = procErr.Error()
		}
		return http.StatusInternalServerError, "Failed to edit image", details
	case errors.As(err, &noImg):
		return http.StatusInternalServerError, "No image returned", noImg.RawText
	case errors.Is(err, editor.ErrNoImage):
		return http.StatusInternalServerError, "No image returned", ""
	default:
		return http.StatusInternalServerError, "Failed to edit image", err.Error()
	}
}
