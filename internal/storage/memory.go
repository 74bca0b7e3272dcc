// Package storage provides session store implementations: in-memory for
// single-process use, SQLite for persistence, Redis for shared state.
// Stores hold whole-session snapshots; callers replace, never mutate.
package storage

import (
	"context"
	"sync"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

// MemoryStore is the default in-process session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*service.Session)}
}

// Create stores a new session snapshot.
func (s *MemoryStore) Create(_ context.Context, session *service.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// Get returns an isolated copy of the session snapshot.
func (s *MemoryStore) Get(_ context.Context, id string) (*service.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// Replace swaps the stored snapshot wholesale.
func (s *MemoryStore) Replace(_ context.Context, session *service.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return common.ErrSessionNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cloneSession isolates store contents from caller-held snapshots.
func cloneSession(session *service.Session) *service.Session {
	out := *session
	out.Profile = session.Profile.Clone()
	out.Messages = append([]model.ChatMessage(nil), session.Messages...)
	if session.PendingSummary != nil {
		pending := *session.PendingSummary
		out.PendingSummary = &pending
	}
	return &out
}
