package channels

import (
	"strings"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/config"
)

func TestIsAllowed(t *testing.T) {
	open := NewBase(bus.ChannelTelegram, bus.NewMessageBus(1), nil)
	if !open.IsAllowed("anyone") {
		t.Fatal("empty allowlist should allow everyone")
	}

	b := NewBase(bus.ChannelTelegram, bus.NewMessageBus(1), []string{"42", "alice"})
	cases := []struct {
		sender string
		want   bool
	}{
		{"42", true},
		{"alice", true},
		{"42|bob", true},
		{"7|alice", true},
		{"7|bob", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := b.IsAllowed(tc.sender); got != tc.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tc.sender, got, tc.want)
		}
	}
}

func TestParseDirectives(t *testing.T) {
	cases := []struct {
		in       string
		provider string
		mode     string
		reset    bool
		rest     string
	}{
		{"hello there", "", "", false, "hello there"},
		{"/provider openai what is 2+2", "openai", "", false, "what is 2+2"},
		{"/mode think prove it", "", "think", false, "prove it"},
		{"/provider gemini /mode write_code fib in go", "gemini", "write_code", false, "fib in go"},
		{"/reset", "", "", true, ""},
		{"/reset and start over", "", "", true, "and start over"},
		{"/provider", "", "", false, "/provider"},
		{"/providers please", "", "", false, "/providers please"},
	}
	for _, tc := range cases {
		d := parseDirectives(tc.in)
		if d.provider != tc.provider || d.mode != tc.mode || d.reset != tc.reset || d.rest != tc.rest {
			t.Errorf("parseDirectives(%q) = %+v", tc.in, d)
		}
	}
}

func TestHandleMessagePublishes(t *testing.T) {
	mb := bus.NewMessageBus(4)
	b := NewBase(bus.ChannelSlack, mb, []string{"u1"})

	b.HandleMessage("u1", "C123", "/provider anthropic hi", nil, map[string]any{"thread_ts": "1.2"})

	if mb.InboundSize() != 1 {
		t.Fatalf("inbound size = %d, want 1", mb.InboundSize())
	}
	msg := <-mb.Inbound
	if msg.Channel() != bus.ChannelSlack || msg.ChatId() != "C123" {
		t.Errorf("unexpected envelope: %s %s", msg.Channel(), msg.ChatId())
	}
	if msg.Content() != "hi" || msg.Provider() != "anthropic" {
		t.Errorf("directives not applied: content=%q provider=%q", msg.Content(), msg.Provider())
	}
	if msg.SessionKey() != "slack:C123" {
		t.Errorf("SessionKey() = %q", msg.SessionKey())
	}
	if _, ok := msg.Metadata()["thread_ts"]; !ok {
		t.Error("metadata not carried through")
	}
}

func TestHandleMessageDeniedSender(t *testing.T) {
	mb := bus.NewMessageBus(4)
	b := NewBase(bus.ChannelTelegram, mb, []string{"42"})

	b.HandleMessage("99", "chat", "hi", nil, nil)

	if mb.InboundSize() != 0 {
		t.Fatalf("denied sender published a message")
	}
}

func TestHandleMessageResetCommand(t *testing.T) {
	mb := bus.NewMessageBus(4)
	b := NewBase(bus.ChannelTelegram, mb, nil)

	b.HandleMessage("42", "chat", "/reset", nil, nil)

	msg := <-mb.Inbound
	if cmd, _ := msg.Metadata()["command"].(string); cmd != "reset" {
		t.Fatalf("metadata command = %v, want reset", msg.Metadata()["command"])
	}
	if msg.Content() != "" {
		t.Errorf("content = %q, want empty", msg.Content())
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 100); len(got) != 1 || got[0] != "short" {
		t.Fatalf("splitMessage(short) = %v", got)
	}

	long := strings.Repeat("line one\n", 5) + "tail"
	chunks := splitMessage(long, 20)
	for i, c := range chunks {
		if len(c) > 20 {
			t.Errorf("chunk %d exceeds limit: %d bytes", i, len(c))
		}
	}
	if joined := strings.Join(chunks, "\n"); !strings.Contains(joined, "tail") {
		t.Error("content lost in split")
	}

	// No break points at all forces a hard cut.
	hard := splitMessage(strings.Repeat("x", 45), 20)
	if len(hard) != 3 {
		t.Errorf("hard cut chunks = %d, want 3", len(hard))
	}
}

func TestMarkdownToTelegramHTML(t *testing.T) {
	got := markdownToTelegramHTML("**bold** and `a<b` plus [link](https://example.com)")
	for _, want := range []string{
		"<b>bold</b>",
		"<code>a&lt;b</code>",
		`<a href="https://example.com">link</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %s", want, got)
		}
	}

	block := markdownToTelegramHTML("```go\nif a < b {\n}\n```")
	if !strings.Contains(block, "<pre><code>if a &lt; b {\n}\n</code></pre>") {
		t.Errorf("code block not converted: %s", block)
	}
}

func TestManagerEnabledChannels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Channels.Telegram.Enabled = true
	cfg.Channels.Telegram.Token = "tok"
	cfg.Channels.Slack.Enabled = true

	m := NewManager(&cfg, bus.NewMessageBus(4))
	got := m.EnabledChannels()
	if len(got) != 2 || got[0] != "slack" || got[1] != "telegram" {
		t.Fatalf("EnabledChannels() = %v", got)
	}

	none := NewManager(func() *config.Config { c := config.DefaultConfig(); return &c }(), bus.NewMessageBus(1))
	if len(none.EnabledChannels()) != 0 {
		t.Fatalf("default config should enable no channels")
	}
}
