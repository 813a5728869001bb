package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
)

// MockSessionRepository implements repository.SessionRepository in memory
// and honours ExpiresAt.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[string]models.Session)}
}

func (m *MockSessionRepository) Save(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists || time.Now().After(session.ExpiresAt) {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MockSessionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MockVisitLatch implements repository.VisitLatch in memory.
type MockVisitLatch struct {
	mu    sync.Mutex
	seen  map[string]bool
	calls int

	// Err is returned by Acquire when set.
	Err error
}

func NewMockVisitLatch() *MockVisitLatch {
	return &MockVisitLatch{seen: make(map[string]bool)}
}

func (m *MockVisitLatch) Acquire(ctx context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return false, m.Err
	}
	if m.seen[requestID] {
		return false, nil
	}
	m.seen[requestID] = true
	return true, nil
}

// Calls returns how many times Acquire was called.
func (m *MockVisitLatch) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
