package session

import (
	"sync"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

// MemoryStore keeps ephemeral sessions in a server-side map. State lives
// exactly as long as the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// GetOrCreate implements Store.
func (m *MemoryStore) GetOrCreate(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New(id, schema.SessionEphemeral)
		m.sessions[id] = s
	}
	return s, nil
}

// Save implements Store. The map already holds the live pointer, so this
// only needs to register sessions created outside GetOrCreate.
func (m *MemoryStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Clear()
	}
	return nil
}

// Lock implements Store.
func (m *MemoryStore) Lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
