package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/internal/bus"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/schema"
)

type fakeCore struct {
	mu      sync.Mutex
	reqs    []orchestrator.Request
	resets  []string
	reply   string
	chatErr error
}

func (f *fakeCore) Chat(_ context.Context, req orchestrator.Request) (schema.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.chatErr != nil {
		return schema.TurnResult{}, f.chatErr
	}
	return schema.TurnResult{ResponseText: f.reply}, nil
}

func (f *fakeCore) Reset(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

func runLoop(t *testing.T, core *fakeCore) (*bus.MessageBus, func()) {
	t.Helper()
	mb := bus.NewMessageBus(8)
	loop := NewLoop(mb, core)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	return mb, func() {
		cancel()
		<-done
	}
}

func waitOutbound(t *testing.T, mb *bus.MessageBus) bus.OutboundMessage {
	t.Helper()
	select {
	case out := <-mb.Outbound:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound message")
		return bus.OutboundMessage{}
	}
}

func TestLoopRunsTurnAndReplies(t *testing.T) {
	core := &fakeCore{reply: "hello back"}
	mb, stop := runLoop(t, core)
	defer stop()

	in := bus.NewInboundMessage(bus.ChannelTelegram, "42", "chat1", "hello")
	in.SetProvider("openai")
	in.SetMode("think")
	in.SetMetadata(map[string]any{"message_id": 7})
	mb.Inbound <- in

	out := waitOutbound(t, mb)
	if out.Channel() != bus.ChannelTelegram || out.ChatId() != "chat1" {
		t.Errorf("unexpected envelope: %s %s", out.Channel(), out.ChatId())
	}
	if out.Content() != "hello back" {
		t.Errorf("content = %q", out.Content())
	}
	if out.Metadata()["message_id"] != 7 {
		t.Error("metadata not carried to outbound")
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.reqs) != 1 {
		t.Fatalf("chat calls = %d", len(core.reqs))
	}
	req := core.reqs[0]
	if req.SessionID != "telegram:chat1" || req.ProviderSelector != "openai" || req.Mode != "think" {
		t.Errorf("request = %+v", req)
	}
	if req.Message.FirstText() != "hello" {
		t.Errorf("message text = %q", req.Message.FirstText())
	}
}

func TestLoopResetCommand(t *testing.T) {
	core := &fakeCore{reply: "ignored"}
	mb, stop := runLoop(t, core)
	defer stop()

	in := bus.NewInboundMessage(bus.ChannelSlack, "u1", "C9", "")
	in.SetMetadata(map[string]any{"command": "reset"})
	mb.Inbound <- in

	out := waitOutbound(t, mb)
	if out.Content() != "Conversation reset." {
		t.Errorf("content = %q", out.Content())
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.resets) != 1 || core.resets[0] != "slack:C9" {
		t.Fatalf("resets = %v", core.resets)
	}
	if len(core.reqs) != 0 {
		t.Error("reset should not run a turn")
	}
}

func TestLoopAttachesImages(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("not-really-png"), 0o644); err != nil {
		t.Fatal(err)
	}

	core := &fakeCore{reply: "seen"}
	mb, stop := runLoop(t, core)
	defer stop()

	in := bus.NewInboundMessage(bus.ChannelTelegram, "42", "chat1", "what is this")
	in.SetMedia([]string{img, filepath.Join(dir, "notes.pdf")})
	mb.Inbound <- in

	waitOutbound(t, mb)

	core.mu.Lock()
	defer core.mu.Unlock()
	parts := core.reqs[0].Message.Parts
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want text + one image", len(parts))
	}
	if parts[1].Kind != schema.PartImage || parts[1].MediaType != "image/png" {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestLoopEmptyMessageDropped(t *testing.T) {
	core := &fakeCore{reply: "never"}
	mb, stop := runLoop(t, core)
	defer stop()

	mb.Inbound <- bus.NewInboundMessage(bus.ChannelTelegram, "42", "chat1", "")

	time.Sleep(50 * time.Millisecond)
	if mb.OutboundSize() != 0 {
		t.Fatal("empty message produced a reply")
	}
	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.reqs) != 0 {
		t.Fatal("empty message ran a turn")
	}
}
