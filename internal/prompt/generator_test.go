package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockTextGenerator struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (m *mockTextGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.response, m.err
}

func TestGenerate_TrimsResponse(t *testing.T) {
	m := &mockTextGenerator{response: "  Remove watermark from bottom-right corner.\n"}
	g := NewGenerator(m)

	got, err := g.Generate(context.Background(), "remove the watermark", "https://i.redd.it/x.png")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Remove watermark from bottom-right corner." {
		t.Errorf("prompt = %q", got)
	}
	if !strings.Contains(m.prompt, "Title: remove the watermark\nImage URL: https://i.redd.it/x.png") {
		t.Errorf("model prompt = %q", m.prompt)
	}
}

func TestGenerate_RefineUsesPreviousPromptAsTitle(t *testing.T) {
	m := &mockTextGenerator{response: "Remove the watermark and brighten the sky."}
	g := NewGenerator(m)

	if _, err := g.Generate(context.Background(), "Remove the watermark.", "https://i.redd.it/x.png"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(m.prompt, "Title: Remove the watermark.\n") {
		t.Errorf("model prompt = %q", m.prompt)
	}
}

func TestGenerate_MissingInput(t *testing.T) {
	tests := []struct {
		name, title, url string
	}{
		{"no title", "", "https://x/y.png"},
		{"no url", "fix it", ""},
		{"neither", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockTextGenerator{response: "x"}
			g := NewGenerator(m)

			_, err := g.Generate(context.Background(), tt.title, tt.url)
			if !errors.Is(err, ErrMissingInput) {
				t.Errorf("err = %v, want ErrMissingInput", err)
			}
			if m.calls != 0 {
				t.Errorf("model called %d times, want 0", m.calls)
			}
		})
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	upstream := errors.New("quota exceeded")
	g := NewGenerator(&mockTextGenerator{err: upstream})

	_, err := g.Generate(context.Background(), "t", "https://x/y.png")
	if !errors.Is(err, upstream) {
		t.Errorf("err = %v, want upstream error", err)
	}
}
