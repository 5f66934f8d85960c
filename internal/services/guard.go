package services

import (
	"context"
	"errors"
	"log/slog"

	"taskify/backend/internal/models"
	"taskify/backend/internal/monitoring"
	"taskify/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const (
	msgAuthRequired   = "authentication required"
	msgInvalidSession = "invalid or expired session"
	msgUserNotFound   = "user not found"
)

// SessionGuard resolves a bearer token to its user before any protected
// operation runs. Validity is looked up on every call, never cached.
type SessionGuard struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	logger   *slog.Logger
}

func NewSessionGuard(users repositories.UserRepository, sessions repositories.SessionRepository, logger *slog.Logger) *SessionGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionGuard{users: users, sessions: sessions, logger: logger}
}

func (g *SessionGuard) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	user, err := g.Resolve(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// Resolve returns the user behind token. A session whose user no longer
// exists is deleted as soon as it is seen.
func (g *SessionGuard) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		monitoring.RecordAuthEvent(monitoring.EventGuardRejected)
		return nil, newError(ErrUnauthenticated, msgAuthRequired)
	}

	session, err := g.sessions.Get(ctx, token)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		monitoring.RecordAuthEvent(monitoring.EventGuardRejected)
		return nil, newError(ErrUnauthenticated, msgInvalidSession)
	}
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindByID(ctx, session.UserID)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		if delErr := g.sessions.Delete(ctx, token); delErr != nil {
			g.logger.Warn("failed to evict dangling session",
				slog.String("user_id", session.UserID.String()),
				slog.String("error", delErr.Error()))
		} else {
			g.logger.Info("evicted dangling session", slog.String("user_id", session.UserID.String()))
		}
		monitoring.RecordAuthEvent(monitoring.EventGuardRejected)
		return nil, newError(ErrUnauthenticated, msgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
