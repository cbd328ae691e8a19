package llmutils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// StringOrDefault returns s if it's not empty, or def if s is empty.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ImageMediaType maps a file path to its image MIME type, or "" for
// anything that is not a supported image format.
func ImageMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return ""
}

// ToolHint generates a short hint string for a list of tool calls, e.g. "web_fetch("https://…")".
func ToolHint(uses []schema.ToolUse) string {
	parts := make([]string, 0, len(uses))
	for _, u := range uses {
		var firstVal string
		for _, v := range u.Arguments {
			if s, ok := v.(string); ok {
				firstVal = s
			}
			break
		}
		if firstVal == "" {
			parts = append(parts, u.Name)
			continue
		}
		if len(firstVal) > 40 {
			firstVal = firstVal[:40] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%q)", u.Name, firstVal))
	}
	return strings.Join(parts, ", ")
}
