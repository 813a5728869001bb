package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"go.uber.org/zap"
)

var (
	ErrEmptyCredentials   = errors.New("username and password are required")
	ErrAdminNotConfigured = errors.New("admin email is not configured")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized access")
)

// AuthService implements the single-admin login flow.
type AuthService struct {
	provider Provider
	sessions *SessionManager
	policy   Policy
	logger   *zap.Logger
}

type LoginResult struct {
	Session *models.Session
	Token   string
}

func NewAuthService(provider Provider, sessions *SessionManager, policy Policy, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{provider: provider, sessions: sessions, policy: policy, logger: logger}
}

// Login checks the username locally, then signs in with the admin email and
// the given password. A principal that is not the admin is signed out again
// before Login returns.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	if !s.policy.Configured() {
		s.logger.Error("Login attempted without ADMIN_EMAIL configured")
		return nil, ErrAdminNotConfigured
	}
	if strings.TrimSpace(username) != AdminUsername {
		s.logger.Info("Login rejected: wrong username")
		return nil, ErrInvalidUsername
	}

	principal, err := s.provider.SignIn(ctx, s.policy.AdminEmail(), password)
	if err != nil {
		s.logger.Info("Login rejected by identity provider", zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	session, token, err := s.sessions.Open(ctx, *principal)
	if err != nil {
		return nil, err
	}

	if s.policy.Authorize(principal) != Allowed {
		if err := s.sessions.Close(ctx, session.ID); err != nil {
			s.logger.Error("Failed to close non-admin session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, ErrUnauthorized
	}

	return &LoginResult{Session: session, Token: token}, nil
}

// Logout closes the session behind token. Unknown or invalid tokens are
// ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	sessionID, err := s.sessions.SessionID(token)
	if err != nil {
		return nil
	}
	return s.sessions.Close(ctx, sessionID)
}

// Authenticate returns the admin session behind token. A live session whose
// principal is no longer allowed is revoked and reported as ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	session, err := s.sessions.Current(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.policy.Authorize(&session.Principal) != Allowed {
		if err := s.sessions.Close(ctx, session.ID); err != nil {
			s.logger.Error("Failed to revoke session", zap.String("session_id", session.ID), zap.Error(err))
		}
		return nil, ErrUnauthorized
	}
	return session, nil
}
