package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type dashScopeMock struct {
	calls   atomic.Int32
	status  int
	body    string
	gotAuth string
	gotPath string
	gotReq  dashScopeRequest
	rawReq  map[string]any
}

func newDashScopeMock(t *testing.T) (*dashScopeMock, *httptest.Server) {
	t.Helper()
	m := &dashScopeMock{
		status: http.StatusOK,
		body:   `{"output":{"choices":[{"message":{"role":"assistant","content":[{"image":"https://cdn/out.png"}]}}]},"request_id":"r1"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		m.gotAuth = r.Header.Get("Authorization")
		m.gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &m.gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.Unmarshal(raw, &m.rawReq)
		w.WriteHeader(m.status)
		fmt.Fprint(w, m.body)
	}))
	t.Cleanup(srv.Close)
	return m, srv
}

// The source URL is never resolved locally; DashScope downloads it.
const unreachableImage = "https://x/img.png"

func TestDashScopeEdit(t *testing.T) {
	m, srv := newDashScopeMock(t)
	b := NewDashScopeBackend("ds-key", "", srv.URL)

	out, err := b.Edit(context.Background(), unreachableImage, "make it black and white")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if out.Image != "https://cdn/out.png" {
		t.Errorf("Image = %q, want the upstream URL verbatim", out.Image)
	}
	if m.gotPath != "/services/aigc/multimodal-generation/generation" {
		t.Errorf("path = %q", m.gotPath)
	}
	if m.gotAuth != "Bearer ds-key" {
		t.Errorf("Authorization = %q", m.gotAuth)
	}
	if m.gotReq.Model != DefaultDashScopeModel {
		t.Errorf("model = %q", m.gotReq.Model)
	}
	if m.gotReq.Parameters.N != 1 {
		t.Errorf("n = %d, want 1", m.gotReq.Parameters.N)
	}
	msgs := m.gotReq.Input.Messages
	if len(msgs) != 1 || len(msgs[0].Content) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Content[0].Image != unreachableImage {
		t.Errorf("image part = %q, want the source URL %q", msgs[0].Content[0].Image, unreachableImage)
	}
	if msgs[0].Content[1].Text != "make it black and white" {
		t.Errorf("text part = %q", msgs[0].Content[1].Text)
	}

	params, _ := m.rawReq["parameters"].(map[string]any)
	if len(params) != 1 || params["n"] != float64(1) {
		t.Errorf("parameters = %v, want exactly {n: 1}", params)
	}
}

func TestDashScopeEdit_RateLimited(t *testing.T) {
	m, srv := newDashScopeMock(t)
	m.status = http.StatusTooManyRequests
	m.body = `{"code":"Throttling.RateQuota","message":"Requests rate limit exceeded"}`
	b := NewDashScopeBackend("ds-key", "", srv.URL)

	_, err := b.Edit(context.Background(), unreachableImage, "x")

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if !upErr.RateLimited() {
		t.Errorf("RateLimited() = false for status %d", upErr.StatusCode)
	}
	if !strings.Contains(upErr.Details(), "Throttling.RateQuota") {
		t.Errorf("Details = %q", upErr.Details())
	}
	if n := m.calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestDashScopeEdit_ErrorCodeInBody(t *testing.T) {
	m, srv := newDashScopeMock(t)
	m.body = `{"code":"InvalidParameter","message":"image too small"}`
	b := NewDashScopeBackend("ds-key", "", srv.URL)

	_, err := b.Edit(context.Background(), unreachableImage, "x")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if !strings.Contains(upErr.Details(), "image too small") {
		t.Errorf("Details = %q", upErr.Details())
	}
}

func TestDashScopeEdit_TextOnlyReply(t *testing.T) {
	m, srv := newDashScopeMock(t)
	m.body = `{"output":{"choices":[{"message":{"role":"assistant","content":[{"text":"cannot edit"}]}}]}}`
	b := NewDashScopeBackend("ds-key", "", srv.URL)

	out, err := b.Edit(context.Background(), unreachableImage, "x")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if out.Image != "" || out.RawText != "cannot edit" {
		t.Errorf("out = %+v", out)
	}
}

func TestDashScopeEdit_NotConfigured(t *testing.T) {
	m, srv := newDashScopeMock(t)
	b := NewDashScopeBackend("", "", srv.URL)

	_, err := b.Edit(context.Background(), "https://x/a.png", "x")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if m.calls.Load() != 0 {
		t.Error("upstream called without a key")
	}
}
