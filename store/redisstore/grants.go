// Package redisstore keeps short-lived single-use grants, such as password reset tokens.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sso:grant:"

// Grant kinds
const (
	KindPasswordReset         = "password_reset"
	KindApprovedPasswordReset = "approved_password_reset"
)

// Grant is a capability handed to a user out of band
type Grant struct {
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// GrantStore stores grants under opaque keys scoped by grant kind. Take removes the grant
// it returns, and returns nil for unknown or expired keys. A key taken under the wrong kind
// misses and leaves the stored grant in place.
type GrantStore interface {
	Put(ctx context.Context, key string, grant Grant, ttl time.Duration) error
	Take(ctx context.Context, kind, key string) (*Grant, error)
}

func storageKey(kind, key string) string {
	return keyPrefix + kind + ":" + key
}

// Connect initializes a Redis client from URL or host:port input
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("[redisstore Connect] parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisstore Connect] ping: %w", err)
	}
	return client, nil
}

type RedisGrantStore struct {
	client *redis.Client
}

var _ GrantStore = (*RedisGrantStore)(nil)

func NewRedisGrantStore(client *redis.Client) *RedisGrantStore {
	return &RedisGrantStore{client: client}
}

func (s *RedisGrantStore) Put(ctx context.Context, key string, grant Grant, ttl time.Duration) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, storageKey(grant.Kind, key), raw, ttl).Err()
}

func (s *RedisGrantStore) Take(ctx context.Context, kind, key string) (*Grant, error) {
	raw, err := s.client.GetDel(ctx, storageKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out Grant
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MemoryGrantStore is the single-process GrantStore used without Redis
type MemoryGrantStore struct {
	lock    sync.Mutex
	grants  map[string]memoryGrant
	nowFunc func() time.Time
}

type memoryGrant struct {
	grant     Grant
	expiresAt time.Time
}

var _ GrantStore = (*MemoryGrantStore)(nil)

func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[string]memoryGrant), nowFunc: time.Now}
}

// WithNowFunc overrides the clock used for expiry
func (s *MemoryGrantStore) WithNowFunc(now func() time.Time) *MemoryGrantStore {
	s.nowFunc = now
	return s
}

func (s *MemoryGrantStore) Put(_ context.Context, key string, grant Grant, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.nowFunc()
	for k, g := range s.grants {
		if !now.Before(g.expiresAt) {
			delete(s.grants, k)
		}
	}
	s.grants[storageKey(grant.Kind, key)] = memoryGrant{grant: grant, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryGrantStore) Take(_ context.Context, kind, key string) (*Grant, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	g, ok := s.grants[storageKey(kind, key)]
	if !ok {
		return nil, nil
	}
	delete(s.grants, storageKey(kind, key))
	if !s.nowFunc().Before(g.expiresAt) {
		return nil, nil
	}
	out := g.grant
	return &out, nil
}
