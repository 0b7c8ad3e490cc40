package prompt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// ErrMissingInput is returned when the title or image URL is empty.
var ErrMissingInput = errors.New("missing title or imageUrl")

// TextGenerator is the interface for single-turn text generation.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator turns a request title into an instruction for an image editing model.
type Generator struct {
	client TextGenerator
}

// NewGenerator creates a Generator backed by the given text model.
func NewGenerator(client TextGenerator) *Generator {
	return &Generator{client: client}
}

// Generate returns the model's prompt for the given title and image URL with
// surrounding whitespace removed. Empty inputs fail with ErrMissingInput
// before any model call.
func (g *Generator) Generate(ctx context.Context, title, imageURL string) (string, error) {
	if title == "" || imageURL == "" {
		return "", ErrMissingInput
	}

	text, err := g.client.GenerateText(ctx, BuildPrompt(title, imageURL))
	if err != nil {
		return "", err
	}

	out := strings.TrimSpace(text)
	slog.Debug("prompt generated", "title_len", len(title), "prompt_len", len(out))
	return out, nil
}
