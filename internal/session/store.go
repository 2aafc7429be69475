// Package session keeps in-memory conversation history per session.
package session

import (
	"sync"

	"github.com/facturabot/facturabot/internal/agent"
)

// Store is a process-local history store. History lives for the lifetime of
// the process; restarting the service starts every conversation fresh.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]agent.Turn
}

func NewStore() *Store {
	return &Store{sessions: make(map[string][]agent.Turn)}
}

// Snapshot returns a copy of the session's history so callers can read it
// while other turns append.
func (s *Store) Snapshot(sessionID string) []agent.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]agent.Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *Store) Append(sessionID string, turns ...agent.Turn) {
	if len(turns) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
}
