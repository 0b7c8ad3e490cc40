package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "fixtral",
	Short: "Browse r/PhotoshopRequest, write edit prompts and run image edits",
	Long: `fixtral serves the image-request feed of r/PhotoshopRequest, writes edit
prompts for it with Gemini and applies edits through a local model,
DashScope (Qwen) or Gemini.

Run "fixtral serve" for the HTTP API, "fixtral mcp" for the MCP stdio
server. The other commands talk to a running server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
