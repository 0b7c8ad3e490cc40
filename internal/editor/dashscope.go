package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultDashScopeBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	DefaultDashScopeModel   = "qwen-image-edit-plus"
	dashScopeTimeout        = 120 * time.Second
	dashScopeGenerationPath = "/services/aigc/multimodal-generation/generation"
)

type dashScopeContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type dashScopeMessage struct {
	Role    string             `json:"role"`
	Content []dashScopeContent `json:"content"`
}

type dashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []dashScopeMessage `json:"messages"`
	} `json:"input"`
	Parameters dashScopeParameters `json:"parameters"`
}

type dashScopeParameters struct {
	N int `json:"n"`
}

type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message dashScopeMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// DashScopeBackend calls the hosted image-edit model behind the qwen and
// openai provider labels.
type DashScopeBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewDashScopeBackend creates a backend for the given key and model. An empty
// model or base URL selects the default.
func NewDashScopeBackend(apiKey, model, baseURL string) *DashScopeBackend {
	if model == "" {
		model = DefaultDashScopeModel
	}
	if baseURL == "" {
		baseURL = DefaultDashScopeBaseURL
	}
	return &DashScopeBackend{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: dashScopeTimeout},
	}
}

func (b *DashScopeBackend) Configured() bool {
	return b != nil && b.apiKey != ""
}

// Edit passes the source image URL and the prompt to the model and returns the
// first image reference in the reply verbatim. The source image is fetched by
// DashScope, not by this process.
func (b *DashScopeBackend) Edit(ctx context.Context, imageURL, prompt string) (Output, error) {
	if !b.Configured() {
		return Output{}, fmt.Errorf("%s: %w", ProviderQwen, ErrNotConfigured)
	}

	var dreq dashScopeRequest
	dreq.Model = b.model
	dreq.Input.Messages = []dashScopeMessage{{
		Role: "user",
		Content: []dashScopeContent{
			{Image: imageURL},
			{Text: prompt},
		},
	}}
	dreq.Parameters = dashScopeParameters{N: 1}

	body, err := json.Marshal(dreq)
	if err != nil {
		return Output{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+dashScopeGenerationPath, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("creating request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Output{}, &UpstreamError{Provider: ProviderQwen, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return Output{}, &UpstreamError{Provider: ProviderQwen, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return Output{}, &UpstreamError{
			Provider:   ProviderQwen,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var dresp dashScopeResponse
	if err := json.Unmarshal(respBody, &dresp); err != nil {
		return Output{}, &UpstreamError{Provider: ProviderQwen, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if dresp.Code != "" {
		return Output{}, &UpstreamError{Provider: ProviderQwen, Err: fmt.Errorf("%s: %s", dresp.Code, dresp.Message)}
	}

	var text []string
	for _, choice := range dresp.Output.Choices {
		for _, c := range choice.Message.Content {
			if c.Image != "" {
				return Output{Image: c.Image}, nil
			}
			if c.Text != "" {
				text = append(text, c.Text)
			}
		}
	}
	if len(dresp.Output.Choices) == 0 {
		return Output{}, &UpstreamError{Provider: ProviderQwen, Err: fmt.Errorf("response has no choices")}
	}
	return Output{RawText: strings.Join(text, "\n")}, nil
}

func (b *DashScopeBackend) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
}
