package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// OpenAIProvider speaks the Chat Completions API. The API enforces strict
// tool sequencing: a "tool" message is only legal immediately after an
// assistant message whose tool_calls list contains its tool_call_id. The
// encoder tracks the pending call ids and rewrites any orphaned tool result
// into a user-visible text placeholder so a replayed or truncated history
// can never make the backend reject the whole request.
type OpenAIProvider struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider constructs the provider from raw credential values.
func NewOpenAIProvider(apiKey, apiBase, model string) *OpenAIProvider {
	spec := FindByName("openai")
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if model == "" {
		model = spec.DefaultModel
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		apiBase:    apiBase,
		model:      model,
		httpClient: newHTTPClient(),
	}
}

func (p *OpenAIProvider) Name() string             { return "openai" }
func (p *OpenAIProvider) SupportsSystemRole() bool { return true }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) (schema.ModelReply, error) {
	body := encodeOpenAI(history, systemPrompt, tools, p.effectiveOpts(opts))

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	start := time.Now()
	raw, err := postJSON(ctx, p.httpClient, "openai", p.apiBase+"/chat/completions", headers, body)
	if err != nil {
		return schema.ModelReply{}, err
	}

	reply, err := decodeOpenAI(raw)
	reply.Usage.Runtime = time.Since(start).Seconds()
	return reply, err
}

func (p *OpenAIProvider) effectiveOpts(opts schema.ChatOptions) schema.ChatOptions {
	if opts.Model == "" {
		opts.Model = p.model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8000
	}
	return opts
}

// encodeOpenAI converts canonical history into a Chat Completions request
// body, enforcing the strict call/result alternation described above.
func encodeOpenAI(history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) map[string]any {
	var messages []map[string]any
	if systemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": systemPrompt})
	}

	// Tool-call ids announced by the most recent assistant message and not
	// yet answered. Only results keyed by a pending id may use role "tool".
	pending := map[string]bool{}

	for _, msg := range history {
		switch msg.Role {
		case schema.RoleSystem:
			messages = append(messages, map[string]any{"role": "system", "content": msg.JoinedText()})
			// A system line does not consume pending calls.

		case schema.RoleAssistant:
			pending = map[string]bool{}
			uses := msg.ToolUses()
			entry := map[string]any{"role": "assistant"}
			if text := msg.JoinedText(); text != "" {
				entry["content"] = text
			} else {
				entry["content"] = nil
			}
			if len(uses) > 0 {
				calls := make([]map[string]any, 0, len(uses))
				for _, u := range uses {
					argsJSON, _ := json.Marshal(u.Arguments)
					if u.Arguments == nil {
						argsJSON = []byte("{}")
					}
					calls = append(calls, map[string]any{
						"id":   u.ID,
						"type": "function",
						"function": map[string]any{
							"name":      u.Name,
							"arguments": string(argsJSON),
						},
					})
					pending[u.ID] = true
				}
				entry["tool_calls"] = calls
			}
			messages = append(messages, entry)

		case schema.RoleTool, schema.RoleUser:
			results := msg.ToolResults()
			for _, r := range results {
				if r.ToolUseID != "" && pending[r.ToolUseID] {
					messages = append(messages, map[string]any{
						"role":         "tool",
						"tool_call_id": r.ToolUseID,
						"content":      r.Content,
					})
					delete(pending, r.ToolUseID)
				} else {
					// Out-of-sequence result: keep the information, drop
					// the illegal role.
					messages = append(messages, map[string]any{
						"role":    "user",
						"content": orphanResultPlaceholder(r),
					})
				}
			}

			rest := partsWithoutResults(msg.Parts)
			if len(rest) == 0 {
				if len(results) == 0 && msg.Role == schema.RoleUser {
					messages = append(messages, map[string]any{"role": "user", "content": ""})
				}
				continue
			}
			pending = map[string]bool{}
			messages = append(messages, map[string]any{
				"role":    "user",
				"content": openAIUserContent(rest),
			})
		}
	}

	body := map[string]any{
		"model":       opts.Model,
		"messages":    messages,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
	}
	if len(tools) > 0 {
		body["tools"] = openAITools(tools)
		body["tool_choice"] = "auto"
	}
	return body
}

func partsWithoutResults(parts []schema.ContentPart) []schema.ContentPart {
	var out []schema.ContentPart
	for _, p := range parts {
		if p.Kind != schema.PartToolResult {
			out = append(out, p)
		}
	}
	return out
}

// openAIUserContent renders user parts. Pure text collapses to a plain
// string; anything multimodal becomes a content-part array.
func openAIUserContent(parts []schema.ContentPart) any {
	multimodal := false
	for _, p := range parts {
		if p.Kind != schema.PartText {
			multimodal = true
			break
		}
	}
	if !multimodal {
		return schema.Message{Role: schema.RoleUser, Parts: parts}.JoinedText()
	}

	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case schema.PartText:
			out = append(out, map[string]any{"type": "text", "text": p.Text})
		case schema.PartImage:
			mt := p.MediaType
			if mt == "" {
				mt = "image/jpeg"
			}
			out = append(out, map[string]any{
				"type": "image_url",
				"image_url": map[string]any{
					"url": fmt.Sprintf("data:%s;base64,%s", mt, base64.StdEncoding.EncodeToString(p.Data)),
				},
			})
		default:
			out = append(out, map[string]any{"type": "text", "text": placeholderFor(p)})
		}
	}
	return out
}

func openAITools(tools []schema.ToolDescriptor) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}
	return out
}

// openAIRespBody is the subset of the Chat Completions response we use.
type openAIRespBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func decodeOpenAI(raw []byte) (schema.ModelReply, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.ModelReply{}, fmt.Errorf("openai: parse response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.ModelReply{}, fmt.Errorf("openai: empty choices in response")
	}

	msg := body.Choices[0].Message
	var parts []schema.ContentPart
	if s, ok := msg.Content.(string); ok && s != "" {
		parts = append(parts, schema.TextPart(s))
	}
	for _, tc := range msg.ToolCalls {
		args, err := parseToolArgs(tc.Function.Arguments)
		if err != nil {
			args = map[string]any{}
		}
		parts = append(parts, schema.ToolUsePart(tc.ID, tc.Function.Name, args))
	}

	stop := schema.StopEndTurn
	switch body.Choices[0].FinishReason {
	case "tool_calls":
		stop = schema.StopToolUse
	case "length":
		stop = schema.StopMaxTokens
	case "", "stop":
		stop = schema.StopEndTurn
	default:
		stop = body.Choices[0].FinishReason
	}

	return schema.ModelReply{
		Parts: parts,
		Usage: schema.Usage{
			InputTokens:  body.Usage.PromptTokens,
			OutputTokens: body.Usage.CompletionTokens,
		},
		StopReason: stop,
		Model:      body.Model,
	}, nil
}
