package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fixtral/fixtral/internal/editor"
)

// NewMCPServer creates an MCP server exposing the feed, prompt and edit
// operations as tools.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fixtral",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("fixtral: list open image-editing requests from Reddit, draft edit prompts, and run edits on a chosen provider."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_requests",
			mcp.WithDescription("List recent image-editing requests that carry a direct image link."),
			mcp.WithBoolean("refresh", mcp.Description("Bypass the cache and fetch from Reddit")),
		),
		mcpListRequests(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_prompt",
			mcp.WithDescription("Write an image-editing prompt from a request title. Pass a previous prompt as title to refine it."),
			mcp.WithString("title", mcp.Description("Request title or previous prompt"), mcp.Required()),
			mcp.WithString("image_url", mcp.Description("URL of the source image"), mcp.Required()),
		),
		mcpGeneratePrompt(deps),
	)

	providers := make([]string, len(editor.Providers))
	for i, p := range editor.Providers {
		providers[i] = string(p)
	}
	s.AddTool(
		mcp.NewTool("edit_image",
			mcp.WithDescription("Edit an image with the chosen provider and return the result."),
			mcp.WithString("image_url", mcp.Description("URL of the source image"), mcp.Required()),
			mcp.WithString("prompt", mcp.Description("Editing instruction"), mcp.Required()),
			mcp.WithString("provider", mcp.Description("Provider (default local)"), mcp.Enum(providers...)),
		),
		mcpEditImage(deps),
	)

	return s
}

func mcpListRequests(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		posts, err := deps.Feed.Posts(ctx, req.GetBool("refresh", false))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to fetch posts: %v", err)), nil
		}
		if len(posts) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(posts)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal posts: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGeneratePrompt(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil || title == "" {
			return mcpError("title is required"), nil
		}
		imageURL, err := req.RequireString("image_url")
		if err != nil || imageURL == "" {
			return mcpError("image_url is required"), nil
		}

		out, err := deps.Prompts.Generate(ctx, title, imageURL)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to generate prompt: %v", err)), nil
		}
		return mcpText(out), nil
	}
}

func mcpEditImage(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		imageURL, err := req.RequireString("image_url")
		if err != nil || imageURL == "" {
			return mcpError("image_url is required"), nil
		}
		instruction, err := req.RequireString("prompt")
		if err != nil || instruction == "" {
			return mcpError("prompt is required"), nil
		}
		provider, err := editor.ParseProvider(req.GetString("provider", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res, err := deps.Editor.Edit(ctx, editor.Request{ImageURL: imageURL, Prompt: instruction, Provider: provider})
		if err != nil {
			_, msg, details := editFailure(provider, err)
			if details != "" {
				msg += ": " + details
			}
			return mcpError(msg), nil
		}

		if mimeType, data, ok := splitDataURI(res.Image); ok {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.ImageContent{Type: "image", Data: data, MIMEType: mimeType},
				},
			}, nil
		}
		return mcpText(res.Image), nil
	}
}

// splitDataURI returns the MIME type and base64 payload of a data URI.
func splitDataURI(uri string) (string, string, bool) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", false
	}
	mimeType, data, ok := strings.Cut(rest, ";base64,")
	if !ok || mimeType == "" || data == "" {
		return "", "", false
	}
	return mimeType, data, true
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
