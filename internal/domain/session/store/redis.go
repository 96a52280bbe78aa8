package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vetrina-server-go/internal/domain/session/model"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed session store. Expiry is delegated to
// redis key TTLs.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "session:"
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(token string) string {
	return s.prefix + token
}

func (s *redisStore) Save(ctx context.Context, session model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	expiry := time.Until(session.ExpiresAt)
	if expiry <= 0 {
		return fmt.Errorf("session already expired")
	}
	return s.client.Set(ctx, s.key(session.Token), data, expiry).Err()
}

func (s *redisStore) Get(ctx context.Context, token string) (model.Session, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.Session{}, err
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, token)
		return model.Session{}, ErrNotFound
	}
	return session, nil
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis handles expiration via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":  "redis",
		"total": size,
	}, nil
}

func (s *redisStore) Close(ctx context.Context) error {
	return s.client.Close()
}
