package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/fixtral/fixtral/internal/gemini"
	"github.com/fixtral/fixtral/internal/imagetext"
)

const geminiEditInstruction = `You are an expert image editor. Apply the following edit to the attached image.

Edit: %s

Return ONLY the edited image as a base64-encoded PNG. Do not include any other text.`

var geminiEditConfig = &gemini.GenerationConfig{
	Temperature:     0.1,
	TopP:            1,
	TopK:            32,
	MaxOutputTokens: 2048,
}

// ContentGenerator is the interface for multimodal generation.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts []gemini.Part, cfg *gemini.GenerationConfig) (string, error)
	Configured() bool
}

// GeminiBackend asks a text model to return the edited image as base64 and
// recovers it heuristically from the reply. Text models rarely comply, so a
// reply without an image is reported as ErrNoImage with the text attached.
type GeminiBackend struct {
	client         ContentGenerator
	downloadClient *http.Client
}

// NewGeminiBackend creates a GeminiBackend.
func NewGeminiBackend(client ContentGenerator) *GeminiBackend {
	return &GeminiBackend{client: client, downloadClient: newDownloadClient()}
}

func (b *GeminiBackend) Configured() bool {
	return b != nil && b.client != nil && b.client.Configured()
}

func (b *GeminiBackend) Edit(ctx context.Context, imageURL, prompt string) (Output, error) {
	if !b.Configured() {
		return Output{}, fmt.Errorf("%s: %w", ProviderGemini, ErrNotConfigured)
	}

	data, mimeType, err := fetchImage(ctx, b.downloadClient, ProviderGemini, imageURL)
	if err != nil {
		return Output{}, err
	}

	parts := []gemini.Part{
		{Text: fmt.Sprintf(geminiEditInstruction, prompt)},
		{InlineData: &gemini.InlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	}

	text, err := b.client.GenerateContent(ctx, parts, geminiEditConfig)
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return Output{}, &UpstreamError{Provider: ProviderGemini, StatusCode: apiErr.StatusCode, Body: apiErr.Body, Err: err}
		}
		if errors.Is(err, gemini.ErrEmptyResponse) {
			return Output{}, ErrNoImage
		}
		return Output{}, &UpstreamError{Provider: ProviderGemini, Err: err}
	}

	uri, ok := imagetext.Extract(text)
	if !ok {
		return Output{}, &NoImageError{RawText: text}
	}
	return Output{Image: uri, RawText: text}, nil
}
