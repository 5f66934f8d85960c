package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taskify/backend/internal/models"
	"taskify/backend/internal/monitoring"
	"taskify/backend/internal/repositories"

	"github.com/gofrs/uuid"
)

const (
	MinPasswordLength = 6

	msgInvalidCredentials = "invalid username or password"
)

type AuthResult struct {
	User      models.UserResponse `json:"user"`
	SessionID string              `json:"sessionId"`
}

type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	WhoAmI(ctx context.Context, sessionID string) (*models.UserResponse, error)
	ActiveSessions(ctx context.Context, userID uuid.UUID) (int64, error)
}

type AuthServiceImpl struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	hasher   PasswordHasher
	guard    *SessionGuard
	logger   *slog.Logger

	// signupMu makes the uniqueness check and the insert one step.
	signupMu sync.Mutex
	now      func() time.Time
}

// NewAuthService resolves WhoAmI through guard, the same one the HTTP layer
// gates on. A nil guard is built over users and sessions.
func NewAuthService(users repositories.UserRepository, sessions repositories.SessionRepository, hasher PasswordHasher, guard *SessionGuard, logger *slog.Logger) *AuthServiceImpl {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if guard == nil {
		guard = NewSessionGuard(users, sessions, logger)
	}
	return &AuthServiceImpl{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		guard:    guard,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthServiceImpl) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	if username == "" || email == "" || password == "" {
		return nil, newError(ErrValidation, "username, email, and password are required")
	}
	if len(password) < MinPasswordLength {
		return nil, newError(ErrValidation, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}
	user := &models.User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}

	if err := s.createUnique(ctx, user); err != nil {
		return nil, err
	}

	sessionID, err := s.issueSession(ctx, user.ID)
	if err != nil {
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to roll back signup",
				slog.String("user_id", user.ID.String()),
				slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	monitoring.RecordAuthEvent(monitoring.EventSignup)
	s.logger.Info("user signed up", slog.String("user_id", user.ID.String()), slog.String("username", user.Username))

	return &AuthResult{User: user.ToResponse(), SessionID: sessionID}, nil
}

func (s *AuthServiceImpl) createUnique(ctx context.Context, user *models.User) error {
	s.signupMu.Lock()
	defer s.signupMu.Unlock()

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, user.Username, user.Email)
	if err != nil {
		return fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return newError(ErrConflict, "username or email already exists")
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return newError(ErrConflict, "username or email already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, newError(ErrValidation, "username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		monitoring.RecordAuthEvent(monitoring.EventLoginFailed)
		return nil, newError(ErrUnauthenticated, msgInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		monitoring.RecordAuthEvent(monitoring.EventLoginFailed)
		return nil, newError(ErrUnauthenticated, msgInvalidCredentials)
	}

	sessionID, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	monitoring.RecordAuthEvent(monitoring.EventLogin)
	s.logger.Info("user logged in", slog.String("user_id", user.ID.String()))

	return &AuthResult{User: user.ToResponse(), SessionID: sessionID}, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	monitoring.RecordAuthEvent(monitoring.EventLogout)
	return nil
}

func (s *AuthServiceImpl) WhoAmI(ctx context.Context, sessionID string) (*models.UserResponse, error) {
	user, err := s.guard.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *AuthServiceImpl) ActiveSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.sessions.CountByUser(ctx, userID)
}

func (s *AuthServiceImpl) issueSession(ctx context.Context, userID uuid.UUID) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}
	session := &models.Session{
		ID:        id.String(),
		UserID:    userID,
		CreatedAt: s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID, nil
}
