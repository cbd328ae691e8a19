// Package session stores per-conversation state: the canonical message
// history plus the running token counter the orchestrator budgets against.
//
// Two backing strategies exist. MemoryStore keeps ephemeral sessions in a
// server-side map; FileStore persists cookie-bound sessions as JSONL files,
// one message per line under a metadata header. Both serialise access per
// key: exactly one orchestrator turn may mutate a given session at a time.
package session

import (
	"time"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// Session holds one conversation's history and token usage.
type Session struct {
	ID              string
	Kind            schema.SessionKind
	History         []schema.Message
	TotalTokensUsed int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New constructs an empty session.
func New(id string, kind schema.SessionKind) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the history.
func (s *Session) Append(msgs ...schema.Message) {
	s.History = append(s.History, msgs...)
	s.UpdatedAt = time.Now()
}

// AddUsage accumulates one backend call's token spend.
func (s *Session) AddUsage(u schema.Usage) {
	s.TotalTokensUsed += u.Total()
	s.UpdatedAt = time.Now()
}

// Clear resets history and the token counter, keeping the identity.
func (s *Session) Clear() {
	s.History = nil
	s.TotalTokensUsed = 0
	s.UpdatedAt = time.Now()
}

// Store is keyed session storage. Lock serialises turns on one session:
// it blocks until the key is free and returns the unlock function.
type Store interface {
	// GetOrCreate returns the session for id, creating an empty one on
	// first contact.
	GetOrCreate(id string) (*Session, error)
	// Save persists the session.
	Save(s *Session) error
	// Reset empties the session's history and token counter. Resetting an
	// unknown id is a no-op.
	Reset(id string) error
	// Lock acquires the per-key mutex for id.
	Lock(id string) (unlock func())
}
