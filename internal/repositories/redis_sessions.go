package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository stores each session as a hash without TTL and keeps
// a per-user index set for counting.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionRepository(client *redis.Client, prefix string) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, prefix: prefix}
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisSessionRepository) userKey(userID uuid.UUID) string {
	return r.prefix + "user_sessions:" + userID.String()
}

// createSession writes the session hash and its per-user index entry in one
// step. It returns 0 without touching anything when the id is taken.
var createSession = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'user_id', ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'created_at', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
return 1
`)

func (r *RedisSessionRepository) Create(ctx context.Context, session *models.Session) error {
	keys := []string{r.sessionKey(session.ID), r.userKey(session.UserID)}
	created, err := createSession.Run(ctx, r.client, keys,
		session.UserID.String(),
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if created == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	rawUserID, ok := fields["user_id"]
	if !ok {
		return nil, ErrRecordNotFound
	}

	userID, err := uuid.FromString(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}

	session := &models.Session{ID: id, UserID: userID}
	if raw, ok := fields["created_at"]; ok {
		if createdAt, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			session.CreatedAt = createdAt
		}
	}
	return session, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	rawUserID, err := r.client.HGet(ctx, r.sessionKey(id), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if userID, err := uuid.FromString(rawUserID); err == nil {
		pipe.SRem(ctx, r.userKey(userID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.client.SCard(ctx, r.userKey(userID)).Result()
}
