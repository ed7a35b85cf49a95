// Package session provides durable session stores behind auth.SessionStore.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/config"
)

const handleBytes = 32

// RedisStore keeps sessions in Redis, keyed by an opaque random handle
// with a fixed TTL from issuance. There is no sliding renewal.
type RedisStore struct {
	db  *redis.Client
	ttl time.Duration
}

var _ auth.SessionStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.Redis, ttl time.Duration) (*RedisStore, error) {
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{db: db, ttl: ttl}, nil
}

func (s *RedisStore) Create(ctx context.Context, p auth.Principal) (string, error) {
	handle, err := newHandle()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	if err := s.db.Set(ctx, sessionKey(handle), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return handle, nil
}

func (s *RedisStore) Get(ctx context.Context, handle string) (*auth.Principal, error) {
	val, err := s.db.Get(ctx, sessionKey(handle)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p auth.Principal
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		// A corrupt session is treated as absent, not as a crash.
		return nil, nil
	}
	return &p, nil
}

func (s *RedisStore) Delete(ctx context.Context, handle string) error {
	return s.db.Del(ctx, sessionKey(handle)).Err()
}

func sessionKey(handle string) string {
	return "session:" + handle
}

func newHandle() (string, error) {
	b := make([]byte, handleBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
