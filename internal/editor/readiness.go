package editor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// CheckLocal verifies that the local model command resolves and the script,
// when set, exists. An empty command is reported as not configured.
func CheckLocal(cfg LocalConfig) error {
	if cfg.Command == "" {
		return fmt.Errorf("%s: %w", ProviderLocal, ErrNotConfigured)
	}
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return fmt.Errorf("local model command %q: %w", cfg.Command, err)
	}
	if cfg.Script != "" {
		if _, err := os.Stat(cfg.Script); err != nil {
			return fmt.Errorf("local model script: %w", err)
		}
	}
	return nil
}

// EnsureReady reports which providers can serve edits, writing one line per
// provider to w. It fails only when the local model is configured but cannot
// be started; unconfigured providers are reported and left to fail per
// request.
func EnsureReady(d *Dispatcher, local LocalConfig, w io.Writer) error {
	for _, p := range Providers {
		if !d.Configured(p) {
			fmt.Fprintf(w, "provider %s: not configured\n", p)
			continue
		}
		if p == ProviderLocal {
			if err := CheckLocal(local); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "provider %s: ready\n", p)
	}
	return nil
}
