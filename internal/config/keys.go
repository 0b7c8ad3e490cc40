package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	altEnv string
	secret bool
	apply  func(cfg *Config, v any)
	// extract returns the current value; durations are rendered as strings.
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "FIXTRAL_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "FIXTRAL_SERVER_PORT", altEnv: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "FIXTRAL_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "feed.subreddit", typ: kString, env: "FIXTRAL_FEED_SUBREDDIT",
		apply:   func(cfg *Config, v any) { cfg.Feed.Subreddit = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.Subreddit },
	},
	{
		key: "feed.limit", typ: kInt, env: "FIXTRAL_FEED_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Feed.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Feed.Limit },
	},
	{
		key: "feed.source", typ: kString, env: "FIXTRAL_FEED_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Feed.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Feed.Source },
	},
	{
		key: "feed.cache_max_age", typ: kDuration, env: "FIXTRAL_FEED_CACHE_MAX_AGE",
		apply:   func(cfg *Config, v any) { cfg.Feed.CacheMaxAge = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Feed.CacheMaxAge.String() },
	},
	{
		key: "reddit.user_agent", typ: kString, env: "FIXTRAL_REDDIT_USER_AGENT", altEnv: "REDDIT_USER_AGENT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.UserAgent = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.UserAgent },
	},
	{
		key: "reddit.username", typ: kString, env: "FIXTRAL_REDDIT_USERNAME", altEnv: "REDDIT_USERNAME",
		apply:   func(cfg *Config, v any) { cfg.Reddit.Username = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.Username },
	},
	{
		key: "reddit.client_id", typ: kString, env: "FIXTRAL_REDDIT_CLIENT_ID", altEnv: "REDDIT_CLIENT_ID",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Reddit.ClientID = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.ClientID },
	},
	{
		key: "reddit.client_secret", typ: kString, env: "FIXTRAL_REDDIT_CLIENT_SECRET", altEnv: "REDDIT_CLIENT_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Reddit.ClientSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.ClientSecret },
	},
	{
		key: "reddit.password", typ: kString, env: "FIXTRAL_REDDIT_PASSWORD", altEnv: "REDDIT_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Reddit.Password = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.Password },
	},
	{
		key: "gemini.api_key", typ: kString, env: "FIXTRAL_GEMINI_API_KEY", altEnv: "GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "FIXTRAL_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.base_url", typ: kString, env: "FIXTRAL_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "dashscope.api_key", typ: kString, env: "FIXTRAL_DASHSCOPE_API_KEY", altEnv: "DASHSCOPE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.DashScope.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.DashScope.APIKey },
	},
	{
		key: "dashscope.model", typ: kString, env: "FIXTRAL_DASHSCOPE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.DashScope.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.DashScope.Model },
	},
	{
		key: "dashscope.base_url", typ: kString, env: "FIXTRAL_DASHSCOPE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.DashScope.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.DashScope.BaseURL },
	},
	{
		key: "local.command", typ: kString, env: "FIXTRAL_LOCAL_COMMAND",
		apply:   func(cfg *Config, v any) { cfg.Local.Command = v.(string) },
		extract: func(cfg Config) any { return cfg.Local.Command },
	},
	{
		key: "local.script", typ: kString, env: "FIXTRAL_LOCAL_SCRIPT",
		apply:   func(cfg *Config, v any) { cfg.Local.Script = v.(string) },
		extract: func(cfg Config) any { return cfg.Local.Script },
	},
	{
		key: "local.work_dir", typ: kString, env: "FIXTRAL_LOCAL_WORK_DIR",
		apply:   func(cfg *Config, v any) { cfg.Local.WorkDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Local.WorkDir },
	},
	{
		key: "local.max_concurrent", typ: kInt, env: "FIXTRAL_LOCAL_MAX_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Local.MaxConcurrent = v.(int) },
		extract: func(cfg Config) any { return cfg.Local.MaxConcurrent },
	},
	{
		key: "local.timeout", typ: kDuration, env: "FIXTRAL_LOCAL_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Local.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Local.Timeout.String() },
	},
}

func findSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw text to the key's type.
func parseValue(s keySpec, raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return i, nil
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration value for %s: %w", s.key, err)
		}
		return d, nil
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := lookupEnv(s)
		if raw == "" {
			continue
		}
		v, err := parseValue(s, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", name, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

// lookupEnv prefers the FIXTRAL_* variable over the well-known alternative.
func lookupEnv(s keySpec) (string, string) {
	if s.env != "" {
		if raw := os.Getenv(s.env); raw != "" {
			return s.env, raw
		}
	}
	if s.altEnv != "" {
		if raw := os.Getenv(s.altEnv); raw != "" {
			return s.altEnv, raw
		}
	}
	return "", ""
}
