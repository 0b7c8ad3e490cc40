package editor

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestEnsureReady(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	local := LocalConfig{Command: "sh"}
	d := NewDispatcher(Backends{
		Local:     NewLocalBackend(local),
		DashScope: NewDashScopeBackend("", "", ""),
	})

	var buf bytes.Buffer
	if err := EnsureReady(d, local, &buf); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"provider local: ready",
		"provider qwen: not configured",
		"provider openai: not configured",
		"provider gemini: not configured",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEnsureReady_MissingCommand(t *testing.T) {
	local := LocalConfig{Command: "fixtral-no-such-model-binary"}
	d := NewDispatcher(Backends{Local: NewLocalBackend(local)})

	var buf bytes.Buffer
	if err := EnsureReady(d, local, &buf); err == nil {
		t.Fatal("expected error for unresolvable command")
	}
}

func TestCheckLocal(t *testing.T) {
	if err := CheckLocal(LocalConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty command: err = %v, want ErrNotConfigured", err)
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	if err := CheckLocal(LocalConfig{Command: "sh", Script: "/nonexistent/fixtral/model.py"}); err == nil {
		t.Error("expected error for missing script")
	}
}
