package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// GeminiProvider speaks the generateContent REST API. Tool use becomes a
// functionCall part and tool results become functionResponse parts whose
// name must match the originating call. The canonical model cannot promise
// which field carries that name, so pairing resolves tool name first and
// falls back to the shared call id, which is carried end-to-end so the
// fallback always lands.
//
// Images are rendered as inline placeholder text; binary image transcoding
// is negotiated with the backend per turn, not replayed through history.
type GeminiProvider struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

// NewGeminiProvider constructs the provider from raw credential values.
func NewGeminiProvider(apiKey, apiBase, model string) *GeminiProvider {
	spec := FindByName("gemini")
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if model == "" {
		model = spec.DefaultModel
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		apiBase:    apiBase,
		model:      model,
		httpClient: newHTTPClient(),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// SupportsSystemRole is false: mode preambles are folded into user text by
// the caller when needed rather than sent as a distinct role.
func (p *GeminiProvider) SupportsSystemRole() bool { return false }

// Chat implements schema.LLMProvider.
func (p *GeminiProvider) Chat(ctx context.Context, history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) (schema.ModelReply, error) {
	opts = p.effectiveOpts(opts)
	body := encodeGemini(history, systemPrompt, tools, opts)

	url := fmt.Sprintf("%s/models/%s:generateContent", p.apiBase, opts.Model)
	headers := map[string]string{"x-goog-api-key": p.apiKey}

	start := time.Now()
	raw, err := postJSON(ctx, p.httpClient, "gemini", url, headers, body)
	if err != nil {
		return schema.ModelReply{}, err
	}

	reply, err := decodeGemini(raw)
	reply.Usage.Runtime = time.Since(start).Seconds()
	if reply.Model == "" {
		reply.Model = opts.Model
	}
	return reply, err
}

func (p *GeminiProvider) effectiveOpts(opts schema.ChatOptions) schema.ChatOptions {
	if opts.Model == "" {
		opts.Model = p.model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8000
	}
	return opts
}

// responseName picks the pairing name for a functionResponse: explicit tool
// name first, shared call id as the guaranteed fallback.
func responseName(r schema.ToolResult) string {
	if r.ToolName != "" {
		return r.ToolName
	}
	return r.ToolUseID
}

// encodeGemini converts canonical history into a generateContent request
// body. Pure: unsupported parts degrade to text.
func encodeGemini(history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) map[string]any {
	var contents []map[string]any

	appendContent := func(role string, parts []map[string]any) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1]["role"] == role {
			prev := contents[n-1]
			prev["parts"] = append(prev["parts"].([]map[string]any), parts...)
			return
		}
		contents = append(contents, map[string]any{"role": role, "parts": parts})
	}

	for _, msg := range history {
		switch msg.Role {
		case schema.RoleSystem:
			// No native system role in history; prepend as user text.
			if t := msg.JoinedText(); t != "" {
				appendContent("user", []map[string]any{{"text": t}})
			}

		case schema.RoleUser, schema.RoleTool:
			var parts []map[string]any
			for _, part := range msg.Parts {
				switch part.Kind {
				case schema.PartText:
					parts = append(parts, map[string]any{"text": part.Text})
				case schema.PartToolResult:
					if part.ToolResult != nil {
						parts = append(parts, map[string]any{
							"functionResponse": map[string]any{
								"name":     responseName(*part.ToolResult),
								"response": map[string]any{"content": part.ToolResult.Content},
							},
						})
					}
				default:
					parts = append(parts, map[string]any{"text": placeholderFor(part)})
				}
			}
			appendContent("user", parts)

		case schema.RoleAssistant:
			var parts []map[string]any
			for _, part := range msg.Parts {
				switch part.Kind {
				case schema.PartText:
					if part.Text != "" {
						parts = append(parts, map[string]any{"text": part.Text})
					}
				case schema.PartToolUse:
					if part.ToolUse != nil {
						args := part.ToolUse.Arguments
						if args == nil {
							args = map[string]any{}
						}
						parts = append(parts, map[string]any{
							"functionCall": map[string]any{
								"name": part.ToolUse.Name,
								"args": args,
							},
						})
					}
				default:
					parts = append(parts, map[string]any{"text": placeholderFor(part)})
				}
			}
			appendContent("model", parts)
		}
	}

	body := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"temperature":     opts.Temperature,
			"maxOutputTokens": opts.MaxTokens,
		},
	}
	if systemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": systemPrompt}},
		}
	}
	if decls := geminiTools(tools); len(decls) > 0 {
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}
	return body
}

func geminiTools(tools []schema.ToolDescriptor) []map[string]any {
	var decls []map[string]any
	for _, t := range tools {
		sanitized := sanitizeSchema(t.InputSchema, geminiSchemaRules)
		if len(sanitized) == 0 {
			sanitized = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		decls = append(decls, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  sanitized,
		})
	}
	return decls
}

// geminiRespBody models the generateContent response.
type geminiRespBody struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string `json:"text"`
				FunctionCall *struct {
					Name string         `json:"name"`
					Args map[string]any `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func decodeGemini(raw []byte) (schema.ModelReply, error) {
	var body geminiRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.ModelReply{}, fmt.Errorf("gemini: parse response: %w", err)
	}

	reply := schema.ModelReply{
		Usage: schema.Usage{
			InputTokens:  body.UsageMetadata.PromptTokenCount,
			OutputTokens: body.UsageMetadata.CandidatesTokenCount,
		},
		Model: body.ModelVersion,
	}

	if len(body.Candidates) == 0 {
		// Safety-blocked or empty: degrade to a placeholder, not an error.
		reply.Parts = []schema.ContentPart{schema.TextPart("[Response blocked or empty]")}
		reply.StopReason = schema.StopError
		return reply, nil
	}

	cand := body.Candidates[0]
	stop := schema.StopEndTurn
	for _, part := range cand.Content.Parts {
		if part.FunctionCall != nil {
			// The API reports no per-call id; reuse the function name so
			// the id→name fallback chain stays intact downstream.
			reply.Parts = append(reply.Parts, schema.ToolUsePart(part.FunctionCall.Name, part.FunctionCall.Name, part.FunctionCall.Args))
			stop = schema.StopToolUse
			continue
		}
		if part.Text != "" {
			reply.Parts = append(reply.Parts, schema.TextPart(part.Text))
		}
	}

	if stop != schema.StopToolUse {
		switch cand.FinishReason {
		case "MAX_TOKENS":
			stop = schema.StopMaxTokens
		case "", "STOP":
			stop = schema.StopEndTurn
		default:
			stop = schema.StopError
		}
	}
	reply.StopReason = stop
	return reply, nil
}
