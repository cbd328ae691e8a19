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

// AnthropicProvider speaks the Anthropic Messages API. Tool use and tool
// results map almost directly onto its content-block model; the adapter's
// main work is stripping the tool-name echo from result blocks (the API
// rejects unknown fields there) and merging consecutive tool results into a
// single user message.
type AnthropicProvider struct {
	apiKey     string
	apiBase    string
	model      string
	httpClient *http.Client
}

// NewAnthropicProvider constructs the provider from raw credential values.
func NewAnthropicProvider(apiKey, apiBase, model string) *AnthropicProvider {
	spec := FindByName("anthropic")
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if model == "" {
		model = spec.DefaultModel
	}
	return &AnthropicProvider{
		apiKey:     apiKey,
		apiBase:    apiBase,
		model:      model,
		httpClient: newHTTPClient(),
	}
}

func (p *AnthropicProvider) Name() string             { return "anthropic" }
func (p *AnthropicProvider) SupportsSystemRole() bool { return true }

// Chat implements schema.LLMProvider.
func (p *AnthropicProvider) Chat(ctx context.Context, history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) (schema.ModelReply, error) {
	body := encodeAnthropic(history, systemPrompt, tools, p.effectiveOpts(opts))

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}

	start := time.Now()
	raw, err := postJSON(ctx, p.httpClient, "anthropic", p.apiBase+"/messages", headers, body)
	if err != nil {
		return schema.ModelReply{}, err
	}

	reply, err := decodeAnthropic(raw)
	reply.Usage.Runtime = time.Since(start).Seconds()
	return reply, err
}

func (p *AnthropicProvider) effectiveOpts(opts schema.ChatOptions) schema.ChatOptions {
	if opts.Model == "" {
		opts.Model = p.model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8000
	}
	return opts
}

// encodeAnthropic converts canonical history into a Messages API request
// body. Pure: any part it cannot express becomes a text block.
func encodeAnthropic(history []schema.Message, systemPrompt string, tools []schema.ToolDescriptor, opts schema.ChatOptions) map[string]any {
	system := systemPrompt
	var messages []map[string]any

	appendUserBlocks := func(blocks []any) {
		// Merge into a preceding user message so tool results and follow-up
		// text share one turn, as the API expects.
		if n := len(messages); n > 0 && messages[n-1]["role"] == "user" {
			prev := messages[n-1]
			if existing, ok := prev["content"].([]any); ok {
				prev["content"] = append(existing, blocks...)
				return
			}
		}
		messages = append(messages, map[string]any{"role": "user", "content": blocks})
	}

	for _, msg := range history {
		switch msg.Role {
		case schema.RoleSystem:
			if t := msg.JoinedText(); t != "" {
				if system != "" {
					system += "\n\n"
				}
				system += t
			}

		case schema.RoleUser:
			blocks := make([]any, 0, len(msg.Parts))
			for _, part := range msg.Parts {
				blocks = append(blocks, anthropicUserBlock(part))
			}
			if len(blocks) == 0 {
				blocks = []any{map[string]any{"type": "text", "text": ""}}
			}
			appendUserBlocks(blocks)

		case schema.RoleTool:
			blocks := make([]any, 0, len(msg.Parts))
			for _, r := range msg.ToolResults() {
				// No tool-name echo: the API accepts only type,
				// tool_use_id, and content on result blocks.
				blocks = append(blocks, map[string]any{
					"type":        "tool_result",
					"tool_use_id": r.ToolUseID,
					"content":     r.Content,
				})
			}
			if len(blocks) > 0 {
				appendUserBlocks(blocks)
			}

		case schema.RoleAssistant:
			var blocks []any
			for _, part := range msg.Parts {
				switch part.Kind {
				case schema.PartText:
					if part.Text != "" {
						blocks = append(blocks, map[string]any{"type": "text", "text": part.Text})
					}
				case schema.PartToolUse:
					if part.ToolUse != nil {
						args := part.ToolUse.Arguments
						if args == nil {
							args = map[string]any{}
						}
						blocks = append(blocks, map[string]any{
							"type":  "tool_use",
							"id":    part.ToolUse.ID,
							"name":  part.ToolUse.Name,
							"input": args,
						})
					}
				default:
					blocks = append(blocks, map[string]any{"type": "text", "text": placeholderFor(part)})
				}
			}
			if len(blocks) == 0 {
				blocks = []any{map[string]any{"type": "text", "text": ""}}
			}
			messages = append(messages, map[string]any{"role": "assistant", "content": blocks})
		}
	}

	body := map[string]any{
		"model":       opts.Model,
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
		"messages":    messages,
	}
	if system != "" {
		body["system"] = system
	}
	if len(tools) > 0 {
		body["tools"] = anthropicTools(tools)
		body["tool_choice"] = map[string]any{"type": "auto"}
	}
	return body
}

// anthropicUserBlock converts one user-side part into a content block.
func anthropicUserBlock(part schema.ContentPart) map[string]any {
	switch part.Kind {
	case schema.PartText:
		return map[string]any{"type": "text", "text": part.Text}
	case schema.PartImage:
		mt := part.MediaType
		if mt == "" {
			mt = "image/jpeg"
		}
		return map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": mt,
				"data":       base64.StdEncoding.EncodeToString(part.Data),
			},
		}
	case schema.PartToolResult:
		if part.ToolResult != nil {
			return map[string]any{
				"type":        "tool_result",
				"tool_use_id": part.ToolResult.ToolUseID,
				"content":     part.ToolResult.Content,
			}
		}
	}
	return map[string]any{"type": "text", "text": placeholderFor(part)}
}

func anthropicTools(tools []schema.ToolDescriptor) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}
	return out
}

// anthropicRespBody models the Messages API response.
type anthropicRespBody struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text"`
		ID    string         `json:"id"`
		Name  string         `json:"name"`
		Input map[string]any `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Model      string `json:"model"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func decodeAnthropic(raw []byte) (schema.ModelReply, error) {
	var body anthropicRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.ModelReply{}, fmt.Errorf("anthropic: parse response: %w", err)
	}

	var parts []schema.ContentPart
	for _, block := range body.Content {
		switch block.Type {
		case "text":
			parts = append(parts, schema.TextPart(block.Text))
		case "tool_use":
			parts = append(parts, schema.ToolUsePart(block.ID, block.Name, block.Input))
		default:
			parts = append(parts, schema.TextPart(fmt.Sprintf("[unrecognised %q block omitted]", block.Type)))
		}
	}

	stop := schema.StopEndTurn
	switch body.StopReason {
	case "tool_use":
		stop = schema.StopToolUse
	case "max_tokens":
		stop = schema.StopMaxTokens
	case "", "end_turn":
		stop = schema.StopEndTurn
	default:
		stop = body.StopReason
	}

	return schema.ModelReply{
		Parts: parts,
		Usage: schema.Usage{
			InputTokens:  body.Usage.InputTokens,
			OutputTokens: body.Usage.OutputTokens,
		},
		StopReason: stop,
		Model:      body.Model,
	}, nil
}
