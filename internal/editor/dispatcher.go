package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Backends holds one backend per provider family. A nil entry means the
// provider is not available in this process.
type Backends struct {
	Local     Backend
	DashScope Backend
	Gemini    Backend
}

// Dispatcher routes edit requests to the backend that serves the provider.
type Dispatcher struct {
	local     Backend
	dashscope Backend
	gemini    Backend
}

// NewDispatcher creates a Dispatcher over the given backends.
func NewDispatcher(b Backends) *Dispatcher {
	return &Dispatcher{local: b.Local, dashscope: b.DashScope, gemini: b.Gemini}
}

func (d *Dispatcher) backendFor(p Provider) (Backend, error) {
	switch p {
	case ProviderLocal:
		return d.local, nil
	case ProviderQwen, ProviderOpenAI:
		return d.dashscope, nil
	case ProviderGemini:
		return d.gemini, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
}

// Configured reports whether the provider has a usable backend.
func (d *Dispatcher) Configured(p Provider) bool {
	b, err := d.backendFor(p)
	return err == nil && b != nil && b.Configured()
}

// Edit validates the request and runs it on the provider's backend. Exactly
// one backend is invoked per call.
func (d *Dispatcher) Edit(ctx context.Context, req Request) (Result, error) {
	if req.ImageURL == "" || req.Prompt == "" {
		return Result{}, ErrMissingInput
	}
	if req.Provider == "" {
		req.Provider = ProviderLocal
	}

	b, err := d.backendFor(req.Provider)
	if err != nil {
		return Result{}, err
	}
	if b == nil || !b.Configured() {
		return Result{}, fmt.Errorf("%s: %w", req.Provider, ErrNotConfigured)
	}

	start := time.Now()
	out, err := b.Edit(ctx, req.ImageURL, req.Prompt)
	if err == nil && out.Image == "" {
		err = &NoImageError{RawText: out.RawText}
	}
	observe(req.Provider, start, err)
	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			upErr.Provider = req.Provider
		}
		return Result{}, err
	}

	slog.Debug("image edited",
		"provider", req.Provider,
		"prompt_len", len(req.Prompt),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Image: out.Image, Provider: req.Provider, RawText: out.RawText}, nil
}

func observe(p Provider, start time.Time, err error) {
	outcome := "ok"
	var upErr *UpstreamError
	var procErr *ProcessError
	switch {
	case err == nil:
	case errors.As(err, &upErr):
		outcome = "upstream_error"
	case errors.As(err, &procErr):
		outcome = "process_error"
	case errors.Is(err, ErrNoImage):
		outcome = "no_image"
	default:
		outcome = "error"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`fixtral_edit_requests_total{provider=%q,outcome=%q}`, p, outcome)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`fixtral_edit_duration_seconds{provider=%q}`, p)).UpdateDuration(start)
}
