package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/fixtral/fixtral/internal/imagetext"
)

const (
	maxStderrBytes = 8 << 10
	waitDelay      = 2 * time.Second
)

// LocalConfig describes how to run the on-host image model.
type LocalConfig struct {
	// Command is the executable, e.g. "python3".
	Command string
	// Script is an optional first argument, e.g. the path to the model script.
	Script string
	// WorkDir holds one scratch directory per request. Defaults to the
	// system temp dir.
	WorkDir string
	// MaxConcurrent bounds simultaneous model runs. Defaults to 1.
	MaxConcurrent int
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// LocalBackend runs the model executable as a child process with arguments
// <input> <output> <prompt>.
type LocalBackend struct {
	cfg        LocalConfig
	sem        *semaphore.Weighted
	httpClient *http.Client
}

// NewLocalBackend creates a LocalBackend.
func NewLocalBackend(cfg LocalConfig) *LocalBackend {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "fixtral")
	}
	return &LocalBackend{
		cfg:        cfg,
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		httpClient: newDownloadClient(),
	}
}

func (b *LocalBackend) Configured() bool {
	return b != nil && b.cfg.Command != ""
}

// Edit downloads the source image into a fresh work directory, runs the
// model on it, and returns the output as a data URI. The work directory is
// removed on every path.
func (b *LocalBackend) Edit(ctx context.Context, imageURL, prompt string) (Output, error) {
	if !b.Configured() {
		return Output{}, fmt.Errorf("%s: %w", ProviderLocal, ErrNotConfigured)
	}

	data, mimeType, err := fetchImage(ctx, b.httpClient, ProviderLocal, imageURL)
	if err != nil {
		return Output{}, err
	}

	dir := filepath.Join(b.cfg.WorkDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Output{}, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input"+extensionFor(mimeType))
	outputPath := filepath.Join(dir, "output.png")
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return Output{}, fmt.Errorf("writing input image: %w", err)
	}

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return Output{}, err
	}
	defer b.sem.Release(1)

	if err := b.run(ctx, inputPath, outputPath, prompt); err != nil {
		return Output{}, err
	}

	out, err := os.ReadFile(outputPath)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(out) == 0) {
		return Output{}, ErrNoImage
	}
	if err != nil {
		return Output{}, fmt.Errorf("reading output image: %w", err)
	}

	outMime := http.DetectContentType(out)
	if !strings.HasPrefix(outMime, "image/") {
		outMime = "image/png"
	}
	return Output{Image: imagetext.EncodeDataURI(outMime, out)}, nil
}

func (b *LocalBackend) run(ctx context.Context, inputPath, outputPath, prompt string) error {
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	args := make([]string, 0, 4)
	if b.cfg.Script != "" {
		args = append(args, b.cfg.Script)
	}
	args = append(args, inputPath, outputPath, prompt)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.cfg.Command, args...)
	cmd.Stderr = &limitedWriter{buf: &stderr, n: maxStderrBytes}
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	slog.Debug("local model finished",
		"command", b.cfg.Command,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err,
	)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ProcessError{ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: ctxErr}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return &ProcessError{ExitCode: -1, Err: fmt.Errorf("starting %s: %w", b.cfg.Command, err)}
}

// limitedWriter keeps the first n bytes and silently drops the rest.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.n - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
