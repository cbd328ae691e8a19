package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

const defaultTimeout = 120 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// postJSON marshals body, POSTs it, and maps transport failures onto the
// package error taxonomy. A 200 returns the raw response bytes.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, connErr(provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connErr(provider, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, rateErr(provider, raw)
	default:
		return nil, statusErr(provider, resp.StatusCode, raw)
	}
}

// placeholderFor renders a content part no backend encoding exists for into
// the text stand-in that keeps the request well-formed.
func placeholderFor(p schema.ContentPart) string {
	switch p.Kind {
	case schema.PartImage:
		mt := p.MediaType
		if mt == "" {
			mt = "image"
		}
		return fmt.Sprintf("[image attached: %s, %d bytes]", mt, len(p.Data))
	case schema.PartToolUse:
		if p.ToolUse != nil {
			return fmt.Sprintf("[tool call %q requested]", p.ToolUse.Name)
		}
	case schema.PartToolResult:
		if p.ToolResult != nil {
			return fmt.Sprintf("[tool result for %q: %s]", p.ToolResult.ToolName, truncate(p.ToolResult.Content, 100))
		}
	case schema.PartText:
		return p.Text
	}
	return "[unsupported content omitted]"
}

// orphanResultPlaceholder summarises a tool result that had to be dropped
// because the history violated the backend's call/result sequencing.
func orphanResultPlaceholder(r schema.ToolResult) string {
	name := r.ToolName
	if name == "" {
		name = r.ToolUseID
	}
	if name == "" {
		name = "unknown tool"
	}
	return fmt.Sprintf("[Tool result for %q (output: %s) omitted: no matching tool call precedes it.]",
		name, truncate(r.Content, 100))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// parseToolArgs unmarshals a tool-call argument string, retrying with
// trailing-garbage repairs for models that emit truncated JSON.
func parseToolArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair tool arguments: %s", truncate(raw, 120))
}

func anyToString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
