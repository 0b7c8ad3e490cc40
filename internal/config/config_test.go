package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secrets file.
type mockSecrets struct {
	values map[string]string
	set    map[string]string
}

func (m *mockSecrets) Get(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockSecrets) Set(key, value string) error {
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

// clearEnv unsets every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		if s.env != "" {
			t.Setenv(s.env, "")
		}
		if s.altEnv != "" {
			t.Setenv(s.altEnv, "")
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, ""), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Feed.Subreddit != "PhotoshopRequest" {
		t.Errorf("Feed.Subreddit = %q", cfg.Feed.Subreddit)
	}
	if cfg.Feed.Limit != 10 {
		t.Errorf("Feed.Limit = %d, want 10", cfg.Feed.Limit)
	}
	if cfg.Feed.Source != SourceAuto {
		t.Errorf("Feed.Source = %q, want auto", cfg.Feed.Source)
	}
	if cfg.Feed.CacheMaxAge != 5*time.Minute {
		t.Errorf("Feed.CacheMaxAge = %v, want 5m", cfg.Feed.CacheMaxAge)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.DashScope.Model != "qwen-image-edit-plus" {
		t.Errorf("DashScope.Model = %q", cfg.DashScope.Model)
	}
	if cfg.Local.MaxConcurrent != 1 || cfg.Local.Timeout != 0 {
		t.Errorf("Local = %+v", cfg.Local)
	}
}

func TestMissingCredentialsAreNotAnError(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(writeTempConfig(t, ""), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" || cfg.DashScope.APIKey != "" || cfg.Reddit.HasCredentials() {
		t.Error("credentials should be empty")
	}
}

func TestFileValues(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `server.port: 8080
feed.subreddit: picrequests
feed.limit: 25
feed.source: rss
feed.cache_max_age: 90s
local.command: python3
local.timeout: 2m
`)

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Feed.Subreddit != "picrequests" || cfg.Feed.Limit != 25 || cfg.Feed.Source != SourceRSS {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Feed.CacheMaxAge != 90*time.Second {
		t.Errorf("Feed.CacheMaxAge = %v, want 90s", cfg.Feed.CacheMaxAge)
	}
	if cfg.Local.Command != "python3" || cfg.Local.Timeout != 2*time.Minute {
		t.Errorf("Local = %+v", cfg.Local)
	}
}

func TestSecretsIgnoredInConfigFile(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, "gemini.api_key: from-file\n")

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("Gemini.APIKey = %q, want secrets ignored in config file", cfg.Gemini.APIKey)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, "server.port: 8080\nfeed.limit: 25\n")
	t.Setenv("FIXTRAL_SERVER_PORT", "9090")
	t.Setenv("FIXTRAL_FEED_CACHE_MAX_AGE", "10m")

	cfg, err := loadWith(b, &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Feed.Limit != 25 {
		t.Errorf("Feed.Limit = %d, want file value 25", cfg.Feed.Limit)
	}
	if cfg.Feed.CacheMaxAge != 10*time.Minute {
		t.Errorf("Feed.CacheMaxAge = %v, want 10m", cfg.Feed.CacheMaxAge)
	}
}

func TestEnvOverride_InvalidValueKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("FIXTRAL_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(writeTempConfig(t, ""), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestSecretResolutionOrder(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		secrets map[string]string
		want    string
	}{
		{"prefixed env wins", map[string]string{"FIXTRAL_GEMINI_API_KEY": "a", "GEMINI_API_KEY": "b"}, map[string]string{"gemini.api_key": "c"}, "a"},
		{"well-known env", map[string]string{"GEMINI_API_KEY": "b"}, map[string]string{"gemini.api_key": "c"}, "b"},
		{"secrets file", nil, map[string]string{"gemini.api_key": "c"}, "c"},
		{"none", nil, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := loadWith(writeTempConfig(t, ""), &mockSecrets{values: tt.secrets})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Gemini.APIKey != tt.want {
				t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, tt.want)
			}
		})
	}
}

func TestRedditCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "bot")
	t.Setenv("REDDIT_PASSWORD", "pw")

	cfg, err := loadWith(writeTempConfig(t, ""), &mockSecrets{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Reddit.HasCredentials() {
		t.Errorf("Reddit = %+v, want complete credentials", cfg.Reddit)
	}
}

func TestInvalidSource(t *testing.T) {
	clearEnv(t)
	_, err := loadWith(writeTempConfig(t, "feed.source: pushshift\n"), &mockSecrets{})
	if err == nil || !strings.Contains(err.Error(), "feed.source") {
		t.Errorf("err = %v, want feed.source error", err)
	}
}

func TestInvalidIntInFile(t *testing.T) {
	clearEnv(t)
	_, err := loadWith(writeTempConfig(t, "feed.limit: lots\n"), &mockSecrets{})
	if err == nil {
		t.Error("expected error for non-integer feed.limit")
	}
}

func TestAddr(t *testing.T) {
	cfg := defaults()
	if got := cfg.Addr(); got != "127.0.0.1:3000" {
		t.Errorf("Addr = %q", got)
	}
}
