package providers

import (
	"strings"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

func TestEncodeGemini_FunctionResponsePairing(t *testing.T) {
	history := []schema.Message{
		schema.NewAssistantMessage(schema.ToolUsePart("web_fetch", "web_fetch", map[string]any{"url": "https://example.com"})),
		schema.NewToolResultMessage("web_fetch", "web_fetch", "page text"),
	}

	body := encodeGemini(history, "", nil, schema.NewChatOptions("gemini-1.5-flash-latest", 1024, 0.7))

	contents := body["contents"].([]map[string]any)
	if len(contents) != 2 {
		t.Fatalf("expected model + user contents, got %d", len(contents))
	}
	if contents[0]["role"] != "model" || contents[1]["role"] != "user" {
		t.Fatalf("wrong roles: %v / %v", contents[0]["role"], contents[1]["role"])
	}
	resp := contents[1]["parts"].([]map[string]any)[0]["functionResponse"].(map[string]any)
	if resp["name"] != "web_fetch" {
		t.Errorf("functionResponse name must match the call, got %v", resp["name"])
	}
	inner := resp["response"].(map[string]any)
	if inner["content"] != "page text" {
		t.Errorf("result content lost: %v", inner["content"])
	}
}

func TestResponseName_FallsBackToCallID(t *testing.T) {
	r := schema.ToolResult{ToolUseID: "call_3", Content: "x"}
	if got := responseName(r); got != "call_3" {
		t.Errorf("expected call id fallback, got %q", got)
	}
	r.ToolName = "read_file"
	if got := responseName(r); got != "read_file" {
		t.Errorf("explicit tool name must win, got %q", got)
	}
}

func TestEncodeGemini_SystemsAndImagesDegradeToText(t *testing.T) {
	history := []schema.Message{
		{Role: schema.RoleSystem, Parts: []schema.ContentPart{schema.TextPart("Be brief.")}},
		schema.NewUserMessage(
			schema.TextPart("describe"),
			schema.ImagePart("image/png", []byte{1, 2}),
		),
	}

	body := encodeGemini(history, "You are a router.", nil, schema.NewChatOptions("m", 100, 0))

	si := body["systemInstruction"].(map[string]any)
	siText := si["parts"].([]map[string]any)[0]["text"].(string)
	if siText != "You are a router." {
		t.Errorf("system instruction lost: %q", siText)
	}

	contents := body["contents"].([]map[string]any)
	// The in-history system line merges into the same user content.
	if len(contents) != 1 || contents[0]["role"] != "user" {
		t.Fatalf("expected one merged user content, got %+v", contents)
	}
	parts := contents[0]["parts"].([]map[string]any)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	imgText, ok := parts[2]["text"].(string)
	if !ok || !strings.Contains(imgText, "image") {
		t.Errorf("image must degrade to placeholder text: %v", parts[2])
	}
}

func TestEncodeGemini_ConsecutiveSameRoleMerged(t *testing.T) {
	history := []schema.Message{
		schema.NewUserText("first"),
		schema.NewUserText("second"),
	}

	body := encodeGemini(history, "", nil, schema.NewChatOptions("m", 100, 0))

	contents := body["contents"].([]map[string]any)
	if len(contents) != 1 {
		t.Fatalf("consecutive user turns must merge, got %d contents", len(contents))
	}
	if parts := contents[0]["parts"].([]map[string]any); len(parts) != 2 {
		t.Errorf("expected 2 merged parts, got %d", len(parts))
	}
}

func TestGeminiTools_AppliesSchemaRules(t *testing.T) {
	tools := []schema.ToolDescriptor{{
		Name:        "file_creator",
		Description: "writes a file",
		InputSchema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"path": map[string]any{"type": []any{"string", "null"}, "default": "a.txt"},
			},
		},
	}}

	decls := geminiTools(tools)
	if len(decls) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(decls))
	}
	params := decls[0]["parameters"].(map[string]any)
	if _, present := params["additionalProperties"]; present {
		t.Error("additionalProperties must be dropped")
	}
	path := params["properties"].(map[string]any)["path"].(map[string]any)
	if path["type"] != "string" {
		t.Errorf("type union must flatten to a single type, got %v", path["type"])
	}
	if _, present := path["default"]; present {
		t.Error("default must be dropped from subschemas")
	}
}

func TestDecodeGemini_FunctionCall(t *testing.T) {
	raw := []byte(`{
		"candidates": [{
			"content": {"parts": [
				{"functionCall": {"name": "list_dir", "args": {"path": "/tmp"}}}
			]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 30, "candidatesTokenCount": 8},
		"modelVersion": "gemini-1.5-flash-latest"
	}`)

	reply, err := decodeGemini(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.StopReason != schema.StopToolUse {
		t.Errorf("functionCall must force tool-use stop, got %q", reply.StopReason)
	}
	uses := reply.ToolUses()
	if len(uses) != 1 || uses[0].Name != "list_dir" {
		t.Fatalf("call not decoded: %+v", uses)
	}
	if uses[0].ID != "list_dir" {
		t.Errorf("call id must reuse the function name, got %q", uses[0].ID)
	}
	if reply.Usage.InputTokens != 30 || reply.Usage.OutputTokens != 8 {
		t.Errorf("usage not decoded: %+v", reply.Usage)
	}
}

func TestDecodeGemini_EmptyCandidatesIsNotAnError(t *testing.T) {
	reply, err := decodeGemini([]byte(`{"candidates": []}`))
	if err != nil {
		t.Fatalf("blocked responses must not error: %v", err)
	}
	if reply.StopReason != schema.StopError {
		t.Errorf("expected error stop reason, got %q", reply.StopReason)
	}
	if !strings.Contains(reply.Text(), "blocked") {
		t.Errorf("expected blocked placeholder, got %q", reply.Text())
	}
}
