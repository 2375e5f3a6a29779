package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionNotFound is returned when a session id does not resolve.
var ErrSessionNotFound = errors.New("conversation: session not found")

// SessionStore persists sessions between events. The core requires no
// durability; the in-memory store is the default and the redis store exists
// for deployments running more than one API instance.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in a process-local map. Sessions are copied on
// the way in and out so concurrent sessions never alias each other's slices.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := cloneSession(&session)
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func cloneSession(in *Session) Session {
	out := *in
	out.Messages = append([]Message(nil), in.Messages...)
	if in.Provider != nil {
		p := *in.Provider
		out.Provider = &p
	}
	if in.Date != nil {
		d := *in.Date
		out.Date = &d
	}
	if in.Slot != nil {
		sl := *in.Slot
		out.Slot = &sl
	}
	return out
}
