package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fixtral/fixtral/internal/reddit"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// diag receives progress and status lines so stdout stays clean for piping.
var diag io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printLine(color, symbol, format string, args ...any) {
	fmt.Fprintln(diag, colorize(color, symbol+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printLine(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printLine(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printLine(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { printLine(colorCyan, "→", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(diag, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// printPost renders one queue entry as a title line and a detail line.
func printPost(w io.Writer, p reddit.Post) {
	created := time.Unix(int64(p.CreatedUTC), 0).UTC().Format(time.DateTime)
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, p.Title), colorize(colorDim, "("+p.ID+")"))
	fmt.Fprintf(w, "  %s  u/%s  %s\n", p.URL, p.Author, created)
}

func providerState(configured bool) string {
	if configured {
		return colorize(colorGreen, "configured")
	}
	return colorize(colorYellow, "not configured")
}
