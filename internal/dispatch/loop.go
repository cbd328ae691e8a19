// Package dispatch runs the loop between the message bus and the
// conversation core.
package dispatch

import (
	"context"
	"log/slog"
	"os"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/shared/llmutils"
)

// Turner runs one conversation turn. Satisfied by *orchestrator.Orchestrator.
type Turner interface {
	Chat(ctx context.Context, req orchestrator.Request) (schema.TurnResult, error)
	Reset(sessionID string) error
}

// Loop reads InboundMessages from the bus, runs a conversation turn for
// each, and publishes the reply as an OutboundMessage. Each inbound
// message is handled in its own goroutine; per-session ordering is the
// session store's lock's job.
type Loop struct {
	bus  *bus.MessageBus
	core Turner
}

func NewLoop(b *bus.MessageBus, core Turner) *Loop {
	return &Loop{bus: b, core: core}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("dispatch loop started")
	for {
		select {
		case msg := <-l.bus.Inbound:
			go l.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("dispatch loop stopping")
			return ctx.Err()
		}
	}
}

func (l *Loop) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	reply := l.process(ctx, msg)
	if reply == "" {
		return
	}
	out := bus.NewOutboundMessage(msg.Channel(), msg.ChatId(), reply)
	out.SetMetadata(msg.Metadata())
	l.bus.Outbound <- out
}

func (l *Loop) process(ctx context.Context, msg bus.InboundMessage) string {
	slog.Info("Inbound message",
		"channel", msg.Channel(), "chat", msg.ChatId(), "preview", msg.Preview())

	if cmd, _ := msg.Metadata()["command"].(string); cmd == "reset" {
		if err := l.core.Reset(msg.SessionKey()); err != nil {
			slog.Error("session reset failed", "session", msg.SessionKey(), "err", err)
			return "Failed to reset the conversation."
		}
		return "Conversation reset."
	}

	userMsg := buildUserMessage(msg)
	if len(userMsg.Parts) == 0 {
		return ""
	}

	result, err := l.core.Chat(ctx, orchestrator.Request{
		SessionID:        msg.SessionKey(),
		Message:          userMsg,
		ProviderSelector: msg.Provider(),
		Mode:             msg.Mode(),
	})
	if err != nil {
		slog.Error("turn failed", "session", msg.SessionKey(), "err", err)
		return "Something went wrong handling that message."
	}
	return result.ResponseText
}

// buildUserMessage assembles the turn's user message from the inbound
// text and any downloaded image attachments.
func buildUserMessage(msg bus.InboundMessage) schema.Message {
	var parts []schema.ContentPart
	if msg.Content() != "" {
		parts = append(parts, schema.TextPart(msg.Content()))
	}
	for _, path := range msg.Media() {
		mt := llmutils.ImageMediaType(path)
		if mt == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("attachment unreadable", "path", path, "err", err)
			continue
		}
		parts = append(parts, schema.ImagePart(mt, data))
	}
	return schema.NewUserMessage(parts...)
}
