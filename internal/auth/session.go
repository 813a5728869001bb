package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session expired or revoked")
	ErrManagerClosed  = errors.New("session manager is closed")
)

type EventKind int

const (
	SessionOpened EventKind = iota
	SessionClosed
)

type SessionEvent struct {
	Kind    EventKind
	Session models.Session
}

// Listener observes session changes. Listeners run synchronously on the
// goroutine that opened or closed the session.
type Listener func(ctx context.Context, event SessionEvent)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager is the process-wide authentication state. Sessions live in
// the session repository; the token handed to clients is a signed JWT whose
// ID is the session ID.
type SessionManager struct {
	repo   repository.SessionRepository
	secret []byte
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
	closed    bool
}

// NewSessionManager signs tokens with secret. An empty secret gets a random
// one, which invalidates all tokens on restart.
func NewSessionManager(repo repository.SessionRepository, secret string, ttl time.Duration, logger *zap.Logger) (*SessionManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}

	return &SessionManager{
		repo:      repo,
		secret:    key,
		ttl:       ttl,
		logger:    logger,
		listeners: make(map[int]Listener),
	}, nil
}

// OnChange registers a listener and returns a func that removes it.
func (m *SessionManager) OnChange(listener Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Open stores a new session for principal and returns it with its token.
// Listeners have run by the time Open returns, so the session may already
// be closed again.
func (m *SessionManager) Open(ctx context.Context, principal models.Principal) (*models.Session, string, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, "", ErrManagerClosed
	}

	now := time.Now()
	session := &models.Session{
		ID:        uuid.NewString(),
		Principal: principal,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := sessionClaims{
		Email: principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   principal.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := m.repo.Save(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Info("Session opened", zap.String("session_id", session.ID), zap.String("email", principal.Email))
	m.notify(ctx, SessionEvent{Kind: SessionOpened, Session: *session})

	return session, token, nil
}

// Close revokes a session. Closing an unknown session is a no-op.
func (m *SessionManager) Close(ctx context.Context, sessionID string) error {
	session, err := m.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	m.logger.Info("Session closed", zap.String("session_id", sessionID))
	m.notify(ctx, SessionEvent{Kind: SessionClosed, Session: *session})
	return nil
}

// Current returns the live session a token refers to.
func (m *SessionManager) Current(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := m.SessionID(token)
	if err != nil {
		return nil, err
	}

	session, err := m.repo.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SessionID verifies a token and extracts its session ID.
func (m *SessionManager) SessionID(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// Shutdown drops all listeners and refuses new sessions.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.listeners = make(map[int]Listener)
}

func (m *SessionManager) notify(ctx context.Context, event SessionEvent) {
	m.mu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	listeners := make([]Listener, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.mu.RUnlock()

	for _, listener := range listeners {
		listener(ctx, event)
	}
}
