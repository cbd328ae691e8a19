// Package channels connects chat platforms to the message bus.
package channels

import (
	"context"
	"log/slog"
	"strings"

	"github.com/switchboard-ai/switchboard/internal/bus"
)

// Channel is a chat platform connector. Start blocks until ctx is
// cancelled; Send delivers one outbound message.
type Channel interface {
	Name() bus.Channel
	Start(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// Base holds the state and helpers shared by all channels.
type Base struct {
	name      bus.Channel
	bus       *bus.MessageBus
	allowFrom []string // empty = allow all
}

func NewBase(name bus.Channel, b *bus.MessageBus, allowFrom []string) Base {
	return Base{name: name, bus: b, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist.
// senderID may be "id|username" (Telegram) or a plain string.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, part := range strings.Split(senderID, "|") {
		if part == "" {
			continue
		}
		for _, allowed := range b.allowFrom {
			if allowed == part {
				return true
			}
		}
	}
	return false
}

// directives are per-turn controls a user can put at the front of a
// message: "/provider <name> ...", "/mode <name> ..." and "/reset".
type directives struct {
	provider string
	mode     string
	reset    bool
	rest     string
}

// parseDirectives strips leading slash directives from content.
// Directives may stack ("/provider openai /mode think hello"); parsing
// stops at the first token that is not a known directive.
func parseDirectives(content string) directives {
	d := directives{rest: strings.TrimSpace(content)}
	for {
		switch {
		case d.rest == "/reset" || strings.HasPrefix(d.rest, "/reset "):
			d.reset = true
			d.rest = strings.TrimSpace(strings.TrimPrefix(d.rest, "/reset"))
		case strings.HasPrefix(d.rest, "/provider "):
			var arg string
			arg, d.rest = nextWord(strings.TrimPrefix(d.rest, "/provider "))
			d.provider = arg
		case strings.HasPrefix(d.rest, "/mode "):
			var arg string
			arg, d.rest = nextWord(strings.TrimPrefix(d.rest, "/mode "))
			d.mode = arg
		default:
			return d
		}
	}
}

func nextWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i:])
	}
	return s, ""
}

// HandleMessage verifies the sender, parses directives, and pushes an
// InboundMessage to the bus.
func (b *Base) HandleMessage(
	senderId, chatId, content string,
	media []string,
	metadata map[string]any,
) {
	if !b.IsAllowed(senderId) {
		slog.Warn("access denied", "channel", b.name, "sender", senderId)
		return
	}

	d := parseDirectives(content)
	if d.reset {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["command"] = "reset"
	}

	msg := bus.NewInboundMessage(b.name, senderId, chatId, d.rest)
	msg.SetProvider(d.provider)
	msg.SetMode(d.mode)
	msg.SetMedia(media)
	msg.SetMetadata(metadata)
	b.bus.Inbound <- msg
}

// splitMessage splits content into chunks that fit within maxLen,
// preferring newline breaks, then space breaks, then a hard cut.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t\n")
	}
	return chunks
}
