package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reputation:staging:"

// RedisStore shares staged payloads between server instances. Expiry is left
// to Redis.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, kind Kind, payload []byte) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := newCode()
		if err != nil {
			return "", err
		}
		ok, err := s.client.SetNX(ctx, keyPrefix+storeKey(kind, code), payload, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("stage payload: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free staging code after 10 attempts")
}

func (s *RedisStore) Take(ctx context.Context, kind Kind, code string) ([]byte, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+storeKey(kind, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take staged payload: %w", err)
	}
	return payload, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
