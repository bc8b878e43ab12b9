package schema

import "strings"

const (
	jsonFenceOpen  = "```json\n"
	jsonFenceClose = "\n```"
	fence          = "```"
)

// StripFences removes a markdown code fence wrapped around a model response
// and trims surrounding whitespace. A "```json\n" ... "\n```" pair is removed
// first; otherwise a bare "```" ... "```" pair. Text without fences is only
// trimmed. Fences that overlap (as in a lone "```") leave nothing behind.
func StripFences(raw string) string {
	switch {
	case strings.HasPrefix(raw, jsonFenceOpen) && strings.HasSuffix(raw, jsonFenceClose):
		raw = between(raw, len(jsonFenceOpen), len(raw)-len(jsonFenceClose))
	case strings.HasPrefix(raw, fence) && strings.HasSuffix(raw, fence):
		raw = between(raw, len(fence), len(raw)-len(fence))
	}
	return strings.TrimSpace(raw)
}

func between(s string, lo, hi int) string {
	if lo >= hi {
		return ""
	}
	return s[lo:hi]
}
