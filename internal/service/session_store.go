package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"todo-app/internal/domain"
)

// SessionStore guarda los identificadores de sesion emitidos y permite
// revocarlos de inmediato.
type SessionStore interface {
	Store(ctx context.Context, session domain.Session) error
	Exists(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID string) error
}

type redisSessionStore struct {
	client     *redis.Client
	prefix     string
	userPrefix string
	timeout    time.Duration
}

// NewRedisSessionStore crea un SessionStore respaldado por Redis. Devuelve nil
// si client es nil.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client:     client,
		prefix:     "auth:session:",
		userPrefix: "auth:user-sessions:",
		timeout:    500 * time.Millisecond,
	}
}

func (s *redisSessionStore) Store(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return nil
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userKey := s.userPrefix + session.UserID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.prefix+session.ID, session.UserID, ttl)
	pipe.SAdd(ctx, userKey, session.ID)
	pipe.Expire(ctx, userKey, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisSessionStore) Exists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userID, err := s.client.Get(ctx, s.prefix+id).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.prefix+id)
	pipe.SRem(ctx, s.userPrefix+userID, id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisSessionStore) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userKey := s.userPrefix + userID
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.prefix+id)
	}
	keys = append(keys, userKey)
	return s.client.Del(ctx, keys...).Err()
}
