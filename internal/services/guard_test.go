package services_test

import (
	"context"
	"testing"

	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"
	"taskify/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.FromString(id)
	require.NoError(t, err)
	return parsed
}

func setupGuard(t *testing.T) (*services.SessionGuard, *services.AuthServiceImpl, *repositories.MemoryUserRepository, *repositories.MemorySessionRepository) {
	t.Helper()
	users := repositories.NewMemoryUserRepository()
	sessions := repositories.NewMemorySessionRepository()
	guard := services.NewSessionGuard(users, sessions, nil)
	auth := services.NewAuthService(users, sessions, nil, guard, nil)
	return guard, auth, users, sessions
}

func TestSessionGuard_MissingToken(t *testing.T) {
	guard, _, _, _ := setupGuard(t)

	_, err := guard.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	assert.Equal(t, "authentication required", err.Error())
}

func TestSessionGuard_UnknownToken(t *testing.T) {
	guard, _, _, _ := setupGuard(t)

	_, err := guard.Authenticate(context.Background(), "not-a-session")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	assert.Equal(t, "invalid or expired session", err.Error())
}

func TestSessionGuard_ResolvesUser(t *testing.T) {
	guard, auth, _, sessions := setupGuard(t)
	ctx := context.Background()

	result, err := auth.Signup(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	userID, err := guard.Authenticate(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID.String())

	_, err = sessions.Get(ctx, result.SessionID)
	assert.NoError(t, err, "successful checks have no side effects")
}

func TestSessionGuard_EvictsDanglingSession(t *testing.T) {
	guard, auth, users, sessions := setupGuard(t)
	ctx := context.Background()

	result, err := auth.Signup(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, users.Delete(ctx, mustParse(t, result.User.ID)))

	_, err = guard.Authenticate(ctx, result.SessionID)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
	assert.Equal(t, "user not found", err.Error())

	_, err = sessions.Get(ctx, result.SessionID)
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

	_, err = guard.Authenticate(ctx, result.SessionID)
	assert.Equal(t, "invalid or expired session", err.Error())
}

func TestSessionGuard_RejectsAfterLogout(t *testing.T) {
	guard, auth, _, _ := setupGuard(t)
	ctx := context.Background()

	result, err := auth.Signup(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, result.SessionID))

	_, err = guard.Authenticate(ctx, result.SessionID)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

// countingSessions records lookups so a test can tell which guard served them.
type countingSessions struct {
	repositories.SessionRepository
	gets int
}

func (c *countingSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	c.gets++
	return c.SessionRepository.Get(ctx, id)
}

func TestAuthService_WhoAmIUsesInjectedGuard(t *testing.T) {
	ctx := context.Background()
	users := repositories.NewMemoryUserRepository()
	sessions := repositories.NewMemorySessionRepository()
	counted := &countingSessions{SessionRepository: sessions}

	guard := services.NewSessionGuard(users, counted, nil)
	auth := services.NewAuthService(users, sessions, nil, guard, nil)

	result, err := auth.Signup(ctx, "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	user, err := auth.WhoAmI(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, counted.gets)
}
