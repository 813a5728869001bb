package auth

import (
	"context"

	"go.uber.org/zap"
)

// Enforcer revokes any session opened for a principal the policy denies.
type Enforcer struct {
	policy   Policy
	sessions *SessionManager
	logger   *zap.Logger
}

func NewEnforcer(policy Policy, sessions *SessionManager, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{policy: policy, sessions: sessions, logger: logger}
}

// Attach subscribes the enforcer to session changes. The returned func
// detaches it.
func (e *Enforcer) Attach() func() {
	return e.sessions.OnChange(e.handle)
}

func (e *Enforcer) handle(ctx context.Context, event SessionEvent) {
	if event.Kind != SessionOpened {
		return
	}
	if e.policy.Authorize(&event.Session.Principal) == Allowed {
		return
	}

	e.logger.Warn("Forcing sign-out of non-admin session",
		zap.String("session_id", event.Session.ID),
		zap.String("email", event.Session.Principal.Email),
	)
	if err := e.sessions.Close(ctx, event.Session.ID); err != nil {
		e.logger.Error("Failed to revoke session", zap.String("session_id", event.Session.ID), zap.Error(err))
	}
}
