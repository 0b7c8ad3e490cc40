package editor

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingInput    = errors.New("missing imageUrl or prompt")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNotConfigured   = errors.New("provider is not configured")
	ErrNoImage         = errors.New("no image returned")
)

// UpstreamError reports a failed call to a remote service: a non-2xx status,
// a malformed payload, or a failed source image download.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream answered 429.
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Details is the diagnostic text shown to the caller.
func (e *UpstreamError) Details() string {
	if e.Body != "" {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

// ProcessError reports a local model run that exited unsuccessfully.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("local model exited with status %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("local model failed: %v", e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// NoImageError carries the model text of a reply that held no image.
type NoImageError struct {
	RawText string
}

func (e *NoImageError) Error() string { return ErrNoImage.Error() }

func (e *NoImageError) Is(target error) bool { return target == ErrNoImage }
