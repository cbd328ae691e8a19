package session

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// FileStore persists sessions as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","id":"…","created_at":"…","updated_at":"…",
//	           "total_tokens_used":N}
//	Line 2+: one JSON message object per line
type FileStore struct {
	dir   string
	cache sync.Map // id → *Session
	locks sync.Map // id → *sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir, creating it if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// GetOrCreate implements Store.
func (f *FileStore) GetOrCreate(id string) (*Session, error) {
	if v, ok := f.cache.Load(id); ok {
		return v.(*Session), nil
	}

	s, err := f.load(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = New(id, schema.SessionPersistent)
	}

	actual, _ := f.cache.LoadOrStore(id, s)
	return actual.(*Session), nil
}

// Save implements Store.
func (f *FileStore) Save(s *Session) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	meta := map[string]any{
		"_type":             "metadata",
		"id":                s.ID,
		"created_at":        s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":        time.Now().UTC().Format(time.RFC3339),
		"total_tokens_used": s.TotalTokensUsed,
	}
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	for _, msg := range s.History {
		if err := enc.Encode(messageToWire(msg)); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	path := f.sessionPath(s.ID)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}

	f.cache.Store(s.ID, s)
	return nil
}

// Reset implements Store.
func (f *FileStore) Reset(id string) error {
	s, err := f.GetOrCreate(id)
	if err != nil {
		return err
	}
	s.Clear()
	return f.Save(s)
}

// Lock implements Store.
func (f *FileStore) Lock(id string) func() {
	v, _ := f.locks.LoadOrStore(id, &sync.Mutex{})
	l := v.(*sync.Mutex)
	l.Lock()
	return l.Unlock
}

func (f *FileStore) sessionPath(id string) string {
	// Keys may carry separators unusable in filenames.
	safe := strings.NewReplacer("/", "_", ":", "_", "..", "_").Replace(id)
	return filepath.Join(f.dir, safe+".jsonl")
}

// load reads a session file, returning nil when none exists.
func (f *FileStore) load(id string) (*Session, error) {
	file, err := os.Open(f.sessionPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	defer file.Close()

	s := New(id, schema.SessionPersistent)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var meta struct {
				Type            string `json:"_type"`
				CreatedAt       string `json:"created_at"`
				TotalTokensUsed int    `json:"total_tokens_used"`
			}
			if json.Unmarshal(line, &meta) == nil && meta.Type == "metadata" {
				s.TotalTokensUsed = meta.TotalTokensUsed
				if t, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
					s.CreatedAt = t
				}
				continue
			}
			// No metadata header; fall through and parse as a message.
		}
		var w wireMessage
		if err := json.Unmarshal(line, &w); err != nil {
			// A corrupted line loses one message, not the session.
			continue
		}
		s.History = append(s.History, wireToMessage(w))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Wire format helpers

type wirePart struct {
	Kind      string         `json:"kind"`
	Text      string         `json:"text,omitempty"`
	MediaType string         `json:"media_type,omitempty"`
	Data      string         `json:"data,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type wireMessage struct {
	Role      string     `json:"role"`
	Parts     []wirePart `json:"parts"`
	Timestamp string     `json:"timestamp,omitempty"`
}

func messageToWire(msg schema.Message) wireMessage {
	w := wireMessage{
		Role:      string(msg.Role),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, p := range msg.Parts {
		wp := wirePart{Kind: string(p.Kind)}
		switch p.Kind {
		case schema.PartText:
			wp.Text = p.Text
		case schema.PartImage:
			wp.MediaType = p.MediaType
			wp.Data = base64.StdEncoding.EncodeToString(p.Data)
		case schema.PartToolUse:
			if p.ToolUse != nil {
				wp.ID = p.ToolUse.ID
				wp.Name = p.ToolUse.Name
				wp.Arguments = p.ToolUse.Arguments
			}
		case schema.PartToolResult:
			if p.ToolResult != nil {
				wp.ToolUseID = p.ToolResult.ToolUseID
				wp.ToolName = p.ToolResult.ToolName
				wp.Content = p.ToolResult.Content
			}
		default:
			wp.Kind = string(schema.PartText)
			wp.Text = p.Text
		}
		w.Parts = append(w.Parts, wp)
	}
	return w
}

func wireToMessage(w wireMessage) schema.Message {
	msg := schema.Message{Role: schema.Role(w.Role)}
	for _, wp := range w.Parts {
		switch schema.PartKind(wp.Kind) {
		case schema.PartText:
			msg.Parts = append(msg.Parts, schema.TextPart(wp.Text))
		case schema.PartImage:
			data, _ := base64.StdEncoding.DecodeString(wp.Data)
			msg.Parts = append(msg.Parts, schema.ImagePart(wp.MediaType, data))
		case schema.PartToolUse:
			msg.Parts = append(msg.Parts, schema.ToolUsePart(wp.ID, wp.Name, wp.Arguments))
		case schema.PartToolResult:
			msg.Parts = append(msg.Parts, schema.ToolResultPart(wp.ToolUseID, wp.ToolName, wp.Content))
		default:
			msg.Parts = append(msg.Parts, schema.TextPart(wp.Text))
		}
	}
	return msg
}
