package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/fixtral/fixtral/internal/api"
	"github.com/fixtral/fixtral/internal/cache"
	"github.com/fixtral/fixtral/internal/config"
	"github.com/fixtral/fixtral/internal/editor"
	"github.com/fixtral/fixtral/internal/feed"
	"github.com/fixtral/fixtral/internal/gemini"
	"github.com/fixtral/fixtral/internal/prompt"
	"github.com/fixtral/fixtral/internal/reddit"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the feed, prompt and edit tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

// services is everything a front end (HTTP or MCP) needs.
type services struct {
	deps       api.Deps
	dispatcher *editor.Dispatcher
	local      editor.LocalConfig
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// newFetcher picks the Reddit source. "auto" uses the OAuth API when every
// credential is present and the public RSS feed otherwise.
func newFetcher(cfg config.Config) (reddit.Fetcher, string, error) {
	creds := reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	}

	switch cfg.Feed.Source {
	case config.SourceAPI:
		if !creds.Complete() {
			return nil, "", errors.New("feed.source is api but the reddit credentials are incomplete")
		}
		return reddit.NewClient(creds), config.SourceAPI, nil
	case config.SourceRSS:
		return reddit.NewRSSFetcher(cfg.Reddit.UserAgent), config.SourceRSS, nil
	default:
		if creds.Complete() {
			return reddit.NewClient(creds), config.SourceAPI, nil
		}
		return reddit.NewRSSFetcher(cfg.Reddit.UserAgent), config.SourceRSS, nil
	}
}

func newServices(cfg config.Config) (*services, error) {
	fetcher, source, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("feed configured", "source", source, "subreddit", cfg.Feed.Subreddit, "limit", cfg.Feed.Limit)

	postCache := cache.New[[]reddit.Post](cache.Config{DefaultMaxAge: cfg.Feed.CacheMaxAge})
	metrics.GetOrCreateGauge("fixtral_cache_entries", func() float64 {
		return float64(postCache.Len())
	})
	feedSvc := feed.NewService(fetcher, postCache, feed.Config{
		Subreddit: cfg.Feed.Subreddit,
		Limit:     cfg.Feed.Limit,
		MaxAge:    cfg.Feed.CacheMaxAge,
	})

	geminiClient := gemini.NewClientWithBaseURL(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL)

	local := editor.LocalConfig{
		Command:       cfg.Local.Command,
		Script:        cfg.Local.Script,
		WorkDir:       cfg.Local.WorkDir,
		MaxConcurrent: cfg.Local.MaxConcurrent,
		Timeout:       cfg.Local.Timeout,
	}
	dispatcher := editor.NewDispatcher(editor.Backends{
		Local:     editor.NewLocalBackend(local),
		DashScope: editor.NewDashScopeBackend(cfg.DashScope.APIKey, cfg.DashScope.Model, cfg.DashScope.BaseURL),
		Gemini:    editor.NewGeminiBackend(geminiClient),
	})

	return &services{
		deps: api.Deps{
			Feed:    feedSvc,
			Prompts: prompt.NewGenerator(geminiClient),
			Editor:  dispatcher,
		},
		dispatcher: dispatcher,
		local:      local,
	}, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "fixtral version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Refuse to start a second instance on the same address.
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(serverURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		printWarning("fixtral is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	if err := editor.EnsureReady(svc.dispatcher, svc.local, os.Stderr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(svc.deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("fixtral listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runMCP serves the tools on stdin/stdout. Everything else goes to stderr.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	if err := editor.EnsureReady(svc.dispatcher, svc.local, os.Stderr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stdioSrv := server.NewStdioServer(api.NewMCPServer(svc.deps, version))
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
