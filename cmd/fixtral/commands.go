package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixtral/fixtral/internal/config"
	"github.com/fixtral/fixtral/internal/editor"
	"github.com/fixtral/fixtral/internal/reddit"
)

// --- queue ---

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List the current image-editing requests",
	Long: `List the newest image posts from the configured subreddit.

Examples:
  fixtral queue
  fixtral queue --refresh
  fixtral queue --json
  fixtral queue --clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")
		clearCache, _ := cmd.Flags().GetBool("clear")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if clearCache {
			resp, err := client.delete(cmd.Context(), "/api/feed/cache")
			if err != nil {
				return err
			}
			if err := expectNoContent(resp); err != nil {
				return err
			}
			printSuccess("Cleared the feed cache")
			return nil
		}

		path := "/api/feed"
		if refresh {
			path += "?refresh=true"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var posts []reddit.Post
		if err := decodeJSON(resp, &posts); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(posts)
		}

		if len(posts) == 0 {
			printWarning("No image requests right now")
			return nil
		}
		for _, p := range posts {
			printPost(out, p)
		}
		return nil
	},
}

func init() {
	queueCmd.Flags().Bool("refresh", false, "bypass the server cache")
	queueCmd.Flags().Bool("json", false, "print the raw JSON list")
	queueCmd.Flags().Bool("clear", false, "drop the server's cached feed and exit")
}

// --- prompt ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Generate an edit prompt for a request",
	Long: `Generate an edit prompt from a request title and its image.

Examples:
  fixtral prompt --title "Remove the people in the background" --image-url https://i.redd.it/abc.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		imageURL, _ := cmd.Flags().GetString("image-url")

		if title == "" || imageURL == "" {
			return errors.New("--title and --image-url are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/prompt", map[string]string{
			"title":    title,
			"imageUrl": imageURL,
		})
		if err != nil {
			return err
		}

		var result struct {
			Prompt string `json:"prompt"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Prompt)
		return nil
	},
}

func init() {
	promptCmd.Flags().String("title", "", "request title")
	promptCmd.Flags().String("image-url", "", "source image URL")
}

// --- edit ---

type editResult struct {
	ProcessedImageURL string `json:"processedImageUrl"`
	EditedImage       string `json:"editedImage"`
	Provider          string `json:"provider"`
	RawModelText      string `json:"rawModelText"`
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit an image with one of the providers",
	Long: `Apply an editing instruction to an image.

Providers: local (default), qwen, openai, gemini.

Examples:
  fixtral edit --image-url https://i.redd.it/abc.jpg --prompt "Remove the watermark"
  fixtral edit --image-url https://i.redd.it/abc.jpg --prompt "Brighten the sky" --provider qwen --out sky.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		imageURL, _ := cmd.Flags().GetString("image-url")
		instruction, _ := cmd.Flags().GetString("prompt")
		providerName, _ := cmd.Flags().GetString("provider")
		outPath, _ := cmd.Flags().GetString("out")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if imageURL == "" || instruction == "" {
			return errors.New("--image-url and --prompt are required")
		}
		provider, err := editor.ParseProvider(providerName)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		client.httpClient.Timeout = timeout

		printStep("Editing with %s", provider)
		resp, err := client.post(cmd.Context(), "/api/edit", map[string]string{
			"imageUrl": imageURL,
			"prompt":   instruction,
			"provider": string(provider),
		})
		if err != nil {
			return err
		}

		var result editResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		image := result.EditedImage
		if image == "" {
			image = result.ProcessedImageURL
		}

		if outPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), image)
			return nil
		}

		if err := saveImage(cmd.Context(), client.httpClient, image, outPath); err != nil {
			return err
		}
		printSuccess("Saved %s edit to %s", result.Provider, outPath)
		return nil
	},
}

func init() {
	editCmd.Flags().String("image-url", "", "source image URL")
	editCmd.Flags().String("prompt", "", "editing instruction")
	editCmd.Flags().String("provider", "", "local, qwen, openai or gemini (default local)")
	editCmd.Flags().String("out", "", "write the edited image to this file instead of printing it")
	editCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait for the edit")
}

// saveImage writes an edit result to path. Data URIs are decoded in place;
// URLs are downloaded.
func saveImage(ctx context.Context, httpClient *http.Client, image, path string) error {
	if rest, ok := strings.CutPrefix(image, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return errors.New("edited image is not a base64 data URI")
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fmt.Errorf("decoding edited image: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	}

	u, err := url.Parse(image)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("cannot save edited image %q", image)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, image, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading edited image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading edited image: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		fmt.Fprintln(diag, colorize(colorBold, "fixtral "+version))
		resp, err := client.get(cmd.Context(), "/health")
		if err != nil {
			printStatus("server", "%s", colorize(colorRed, "not running"))
		} else {
			var health struct {
				Status string `json:"status"`
			}
			if err := decodeJSON(resp, &health); err != nil {
				printStatus("server", "%s (%v)", colorize(colorRed, "unhealthy"), err)
			} else {
				printStatus("server", "%s on %s", colorize(colorGreen, health.Status), client.baseURL)
			}
		}

		printStatus("feed", "r/%s, %d posts, source %s, cached %s", cfg.Feed.Subreddit, cfg.Feed.Limit, cfg.Feed.Source, cfg.Feed.CacheMaxAge)
		printStatus("gemini", "%s", providerState(cfg.Gemini.APIKey != ""))
		printStatus("dashscope", "%s", providerState(cfg.DashScope.APIKey != ""))
		printStatus("local", "%s", providerState(cfg.Local.Command != ""))
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. Credentials are written to the secrets file.\n\nKeys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
