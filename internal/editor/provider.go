package editor

import (
	"fmt"
	"strings"
)

// Provider names an image editing backend.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderQwen   Provider = "qwen"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Providers lists every accepted provider in display order.
var Providers = []Provider{ProviderLocal, ProviderQwen, ProviderOpenAI, ProviderGemini}

// ParseProvider maps a request value to a Provider. Empty and "default" select
// the local model.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "", "default":
		return ProviderLocal, nil
	case ProviderLocal, ProviderQwen, ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
}
