// Package imagetext recovers an image embedded as base64 in free-form model
// output.
package imagetext

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"sort"
	"strings"
)

var (
	dataURIPattern = regexp.MustCompile(`data:image/(png|jpeg|jpg|webp|gif);base64,([A-Za-z0-9+/=\s]+)`)
	bareRunPattern = regexp.MustCompile(`[A-Za-z0-9+/=\s]{100,}`)
)

// maxEdgeWords bounds how many leading or trailing words of a bare run are
// dropped while looking for a decodable payload.
const maxEdgeWords = 8

// Extract returns a canonical data URI for the first image found in text.
// A labelled data URI wins over a bare base64 run; bare runs must decode to
// bytes that sniff as an image. It never fails loudly: ok is false when
// nothing usable is found.
func Extract(text string) (dataURI string, ok bool) {
	if text == "" {
		return "", false
	}

	for _, m := range dataURIPattern.FindAllStringSubmatch(text, -1) {
		payload := stripSpace(m[2])
		if _, err := decode(payload); err != nil {
			continue
		}
		return "data:" + mimeFor(m[1]) + ";base64," + payload, true
	}

	runs := bareRunPattern.FindAllString(text, -1)
	sort.SliceStable(runs, func(i, j int) bool { return len(runs[i]) > len(runs[j]) })
	for _, run := range runs {
		if uri, ok := fromBareRun(run); ok {
			return uri, true
		}
	}
	return "", false
}

// EncodeDataURI wraps raw image bytes as a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// fromBareRun tries the run as-is, then with surrounding prose words trimmed.
func fromBareRun(run string) (string, bool) {
	words := strings.Fields(run)
	n := len(words)
	for start := 0; start < n && start <= maxEdgeWords; start++ {
		for end := n; end > start && n-end <= maxEdgeWords; end-- {
			payload := strings.Join(words[start:end], "")
			if len(payload) < 100 {
				break
			}
			data, err := decode(payload)
			if err != nil {
				continue
			}
			mime := http.DetectContentType(data)
			if !strings.HasPrefix(mime, "image/") {
				continue
			}
			return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), true
		}
	}
	return "", false
}

func decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func mimeFor(subtype string) string {
	if subtype == "jpg" {
		subtype = "jpeg"
	}
	return "image/" + subtype
}
