package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	store := NewMemoryStore()

	s, err := store.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "alice" || s.Kind != schema.SessionEphemeral {
		t.Errorf("wrong session: %+v", s)
	}

	s.Append(schema.NewUserText("hi"))
	again, _ := store.GetOrCreate("alice")
	if len(again.History) != 1 {
		t.Error("second lookup must return the same session")
	}
}

func TestMemoryStoreReset(t *testing.T) {
	store := NewMemoryStore()
	s, _ := store.GetOrCreate("bob")
	s.Append(schema.NewUserText("hi"))
	s.AddUsage(schema.Usage{InputTokens: 10, OutputTokens: 5})

	if err := store.Reset("bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.History) != 0 || s.TotalTokensUsed != 0 {
		t.Errorf("reset must empty history and tokens: %+v", s)
	}

	if err := store.Reset("nobody"); err != nil {
		t.Errorf("resetting an unknown id must be a no-op: %v", err)
	}
}

func TestMemoryStoreLockSerialises(t *testing.T) {
	store := NewMemoryStore()
	s, _ := store.GetOrCreate("carol")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock("carol")
			defer unlock()
			s.Append(schema.NewUserText("x"))
			s.AddUsage(schema.Usage{InputTokens: 1})
		}()
	}
	wg.Wait()

	if len(s.History) != 50 || s.TotalTokensUsed != 50 {
		t.Errorf("lost updates under lock: %d messages, %d tokens", len(s.History), s.TotalTokensUsed)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	s, _ := store.GetOrCreate("user:42")
	s.Append(
		schema.NewUserText("summarize this"),
		schema.NewAssistantMessage(schema.ToolUsePart("t1", "read_file", map[string]any{"path": "a.txt"})),
		schema.NewToolResultMessage("t1", "read_file", "contents"),
		schema.NewAssistantMessage(schema.TextPart("Done.")),
	)
	s.AddUsage(schema.Usage{InputTokens: 100, OutputTokens: 40})
	if err := store.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh store must reload from disk, not the cache.
	reloaded, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.GetOrCreate("user:42")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.TotalTokensUsed != 140 {
		t.Errorf("token counter lost: %d", got.TotalTokensUsed)
	}
	if len(got.History) != 4 {
		t.Fatalf("history lost: %d messages", len(got.History))
	}
	uses := got.History[1].ToolUses()
	if len(uses) != 1 || uses[0].ID != "t1" || uses[0].Arguments["path"] != "a.txt" {
		t.Errorf("tool use not round-tripped: %+v", uses)
	}
	results := got.History[2].ToolResults()
	if len(results) != 1 || results[0].ToolUseID != "t1" || results[0].Content != "contents" {
		t.Errorf("tool result not round-tripped: %+v", results)
	}
}

func TestFileStoreResetPersists(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)

	s, _ := store.GetOrCreate("dave")
	s.Append(schema.NewUserText("hi"))
	s.AddUsage(schema.Usage{InputTokens: 9})
	if err := store.Save(s); err != nil {
		t.Fatal(err)
	}

	if err := store.Reset("dave"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	reloaded, _ := NewFileStore(dir)
	got, _ := reloaded.GetOrCreate("dave")
	if len(got.History) != 0 || got.TotalTokensUsed != 0 {
		t.Errorf("reset not persisted: %+v", got)
	}
}

func TestFileStoreSanitisesKeys(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir)

	s, _ := store.GetOrCreate("../evil/../../key")
	if err := store.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 session file inside the store dir, got %d", len(entries))
	}
	if strings.Contains(entries[0].Name(), "..") {
		t.Errorf("separators must be sanitised: %s", entries[0].Name())
	}
	if _, err := os.Stat(filepath.Join(dir, entries[0].Name())); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreSkipsCorruptedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ed.jsonl")
	content := `{"_type":"metadata","id":"ed","total_tokens_used":7}
{"role":"user","parts":[{"kind":"text","text":"first"}]}
{not json at all
{"role":"assistant","parts":[{"kind":"text","text":"second"}]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store, _ := NewFileStore(dir)
	got, err := store.GetOrCreate("ed")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("corrupted line must lose one message, not the session: %d messages", len(got.History))
	}
	if got.TotalTokensUsed != 7 {
		t.Errorf("metadata lost: %d", got.TotalTokensUsed)
	}
}
