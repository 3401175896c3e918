package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Manoelfg123/wpp-ohi/internal/session/models"
	"github.com/Manoelfg123/wpp-ohi/pkg/sentinel"
)

// InMemoryStore stores sessions in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewInMemory constructs an empty in-memory session store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrInvalidState)
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return cloneSession(session), nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, cloneSession(session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *InMemoryStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	updated := cloneSession(session)
	updated.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = updated
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, sessionID string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	session.Status = status
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

func cloneSession(session *models.Session) *models.Session {
	copied := *session
	return &copied
}
