package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Feed      FeedConfig
	Reddit    RedditConfig
	Gemini    GeminiConfig
	DashScope DashScopeConfig
	Local     LocalConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

// Feed sources.
const (
	SourceAuto = "auto"
	SourceAPI  = "api"
	SourceRSS  = "rss"
)

type FeedConfig struct {
	Subreddit   string
	Limit       int
	Source      string
	CacheMaxAge time.Duration
}

type RedditConfig struct {
	UserAgent    string
	Username     string
	ClientID     string
	ClientSecret string
	Password     string
}

// HasCredentials reports whether the OAuth script-app credentials are all set.
func (r RedditConfig) HasCredentials() bool {
	return r.ClientID != "" && r.ClientSecret != "" && r.Username != "" && r.Password != ""
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type DashScopeConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type LocalConfig struct {
	Command       string
	Script        string
	WorkDir       string
	MaxConcurrent int
	Timeout       time.Duration
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Feed: FeedConfig{
			Subreddit:   "PhotoshopRequest",
			Limit:       10,
			Source:      SourceAuto,
			CacheMaxAge: 5 * time.Minute,
		},
		Reddit: RedditConfig{
			UserAgent: "fixtral/1.0",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		DashScope: DashScopeConfig{
			Model:   "qwen-image-edit-plus",
			BaseURL: "https://dashscope-intl.aliyuncs.com/api/v1",
		},
		Local: LocalConfig{
			WorkDir:       filepath.Join(os.TempDir(), "fixtral"),
			MaxConcurrent: 1,
		},
	}
}

// Load reads configuration from the YAML config file, environment variables,
// and the secrets file.
//
// The config file lives at $XDG_CONFIG_HOME/fixtral/config.yaml and holds
// flat dotted keys. Environment variables (FIXTRAL_*, plus well-known names
// such as GEMINI_API_KEY) override file values. Credentials never come from
// the config file: they are read from the environment or, failing that, from
// $XDG_DATA_HOME/fixtral/secrets.yaml.
//
// Missing credentials are not an error; the affected provider reports itself
// as not configured when used.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), secretsFile{path: SecretsFilePath()})
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if val, err := secrets.Get(s.key); err == nil && val != "" {
			s.apply(&cfg, val)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Feed.Source {
	case SourceAuto, SourceAPI, SourceRSS:
	default:
		return fmt.Errorf("invalid feed.source %q: want %s, %s or %s", c.Feed.Source, SourceAuto, SourceAPI, SourceRSS)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Feed.Limit <= 0 {
		return fmt.Errorf("invalid feed.limit %d: must be positive", c.Feed.Limit)
	}
	if c.Local.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid local.max_concurrent %d: must be positive", c.Local.MaxConcurrent)
	}
	return nil
}

// Addr is the host:port the server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
