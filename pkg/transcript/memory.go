package transcript

import (
	"context"
	"sync"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// MemoryStore keeps session histories in process memory. It is the default
// store; histories vanish on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]chat.Message)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msgs...)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[sessionID]
	out := make([]chat.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
