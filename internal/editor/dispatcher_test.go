package editor

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type dispatchFixture struct {
	local, dashscope, gemini *mockBackend
	d                        *Dispatcher
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		local:     &mockBackend{configured: true, out: Output{Image: "data:image/png;base64,AAAA"}},
		dashscope: &mockBackend{configured: true, out: Output{Image: "https://cdn/out.png"}},
		gemini:    &mockBackend{configured: true, out: Output{Image: "data:image/png;base64,BBBB", RawText: "here"}},
	}
	f.d = NewDispatcher(Backends{Local: f.local, DashScope: f.dashscope, Gemini: f.gemini})
	return f
}

func TestEdit_RoutesToExactlyOneBackend(t *testing.T) {
	tests := []struct {
		provider  Provider
		wantLocal int
		wantDS    int
		wantGem   int
		wantImage string
	}{
		{ProviderLocal, 1, 0, 0, "data:image/png;base64,AAAA"},
		{"", 1, 0, 0, "data:image/png;base64,AAAA"},
		{ProviderQwen, 0, 1, 0, "https://cdn/out.png"},
		{ProviderOpenAI, 0, 1, 0, "https://cdn/out.png"},
		{ProviderGemini, 0, 0, 1, "data:image/png;base64,BBBB"},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			f := newDispatchFixture()
			res, err := f.d.Edit(context.Background(), Request{
				ImageURL: "https://i.redd.it/x.png",
				Prompt:   "remove the car",
				Provider: tt.provider,
			})
			if err != nil {
				t.Fatalf("Edit: %v", err)
			}
			if res.Image != tt.wantImage {
				t.Errorf("Image = %q, want %q", res.Image, tt.wantImage)
			}
			if f.local.callCount() != tt.wantLocal || f.dashscope.callCount() != tt.wantDS || f.gemini.callCount() != tt.wantGem {
				t.Errorf("calls local=%d dashscope=%d gemini=%d", f.local.callCount(), f.dashscope.callCount(), f.gemini.callCount())
			}
		})
	}
}

func TestEdit_PassesRequestThrough(t *testing.T) {
	f := newDispatchFixture()
	res, err := f.d.Edit(context.Background(), Request{ImageURL: "https://x/a.jpg", Prompt: "brighten", Provider: ProviderGemini})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if f.gemini.imageURL != "https://x/a.jpg" || f.gemini.prompt != "brighten" {
		t.Errorf("backend got (%q, %q)", f.gemini.imageURL, f.gemini.prompt)
	}
	if res.Provider != ProviderGemini || res.RawText != "here" {
		t.Errorf("result = %+v", res)
	}
}

func TestEdit_MissingInput(t *testing.T) {
	f := newDispatchFixture()
	for _, req := range []Request{
		{Prompt: "x"},
		{ImageURL: "https://x/a.png"},
		{},
	} {
		if _, err := f.d.Edit(context.Background(), req); !errors.Is(err, ErrMissingInput) {
			t.Errorf("Edit(%+v) err = %v, want ErrMissingInput", req, err)
		}
	}
	if n := f.local.callCount() + f.dashscope.callCount() + f.gemini.callCount(); n != 0 {
		t.Errorf("backends called %d times, want 0", n)
	}
}

func TestEdit_UnknownProvider(t *testing.T) {
	f := newDispatchFixture()
	_, err := f.d.Edit(context.Background(), Request{ImageURL: "https://x/a.png", Prompt: "x", Provider: "dalle"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestEdit_NotConfigured(t *testing.T) {
	f := newDispatchFixture()
	f.dashscope.configured = false
	d := NewDispatcher(Backends{Local: f.local, DashScope: f.dashscope})

	for _, p := range []Provider{ProviderQwen, ProviderGemini} {
		_, err := d.Edit(context.Background(), Request{ImageURL: "https://x/a.png", Prompt: "x", Provider: p})
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("%s: err = %v, want ErrNotConfigured", p, err)
		}
	}
	if f.dashscope.callCount() != 0 {
		t.Error("unconfigured backend was invoked")
	}
}

func TestEdit_EmptyImageIsNoImage(t *testing.T) {
	f := newDispatchFixture()
	f.dashscope.out = Output{RawText: "I could not do that"}

	_, err := f.d.Edit(context.Background(), Request{ImageURL: "https://x/a.png", Prompt: "x", Provider: ProviderQwen})
	if !errors.Is(err, ErrNoImage) {
		t.Errorf("err = %v, want ErrNoImage", err)
	}
	var noImg *NoImageError
	if !errors.As(err, &noImg) {
		t.Fatalf("err = %T, want *NoImageError", err)
	}
	if noImg.RawText != "I could not do that" {
		t.Errorf("RawText = %q, want the model's reply", noImg.RawText)
	}
}

func TestEdit_UpstreamErrorCarriesRequestedProvider(t *testing.T) {
	f := newDispatchFixture()
	f.dashscope.err = &UpstreamError{Provider: ProviderQwen, StatusCode: http.StatusTooManyRequests, Body: "slow down"}

	_, err := f.d.Edit(context.Background(), Request{ImageURL: "https://x/a.png", Prompt: "x", Provider: ProviderOpenAI})
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if upErr.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", upErr.Provider)
	}
	if !upErr.RateLimited() {
		t.Error("RateLimited() = false, want true")
	}
}

func TestConfigured(t *testing.T) {
	f := newDispatchFixture()
	f.gemini.configured = false
	if !f.d.Configured(ProviderLocal) {
		t.Error("local should be configured")
	}
	if f.d.Configured(ProviderGemini) {
		t.Error("gemini should not be configured")
	}
	if f.d.Configured("dalle") {
		t.Error("unknown provider reported configured")
	}
}
