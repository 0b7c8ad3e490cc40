package editor

import "context"

// Request is one image edit.
type Request struct {
	ImageURL string
	Prompt   string
	Provider Provider
}

// Result is a successful edit. Image is either a data URI or a URL.
type Result struct {
	Image    string
	Provider Provider
	RawText  string
}

// Output is what a backend produces for one edit.
type Output struct {
	Image   string
	RawText string
}

// Backend performs edits for one or more providers.
type Backend interface {
	Edit(ctx context.Context, imageURL, prompt string) (Output, error)
	Configured() bool
}
