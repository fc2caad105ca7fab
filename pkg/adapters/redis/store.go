// Package redis provides a Redis-backed SessionStore and a distributed
// locker for multi-instance deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/elicit/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// saveScript performs the version compare-and-swap atomically on the
// server: write data, version and index entry only when the stored
// version is exactly one behind the incoming one.
//
// KEYS[1] = data key, KEYS[2] = version key, KEYS[3] = index zset
// ARGV[1] = payload, ARGV[2] = new version, ARGV[3] = ttl millis (0 = none),
// ARGV[4] = index score, ARGV[5] = session id
var saveScript = backend.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current + 1 ~= tonumber(ARGV[2]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("SET", KEYS[2], ARGV[2])
end
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[5])
return 1
`)

// Store implements ports.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "elicit:session:",
		ttl:    0, // no expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) versionKey(sessionID string) string {
	return s.prefix + sessionID + ":version"
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the checkpoint, enforcing the version compare-and-swap
// server-side so concurrent writers cannot interleave.
func (s *Store) Save(ctx context.Context, cp *domain.Checkpoint) error {
	if cp.SessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// Index score = expiry time, so List can lazily prune. Infinite TTL
	// gets a far-future score.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	ok, err := saveScript.Run(ctx, s.client,
		[]string{s.key(cp.SessionID), s.versionKey(cp.SessionID), s.indexKey()},
		data, cp.Version, s.ttl.Milliseconds(), score, cp.SessionID,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if ok != 1 {
		return fmt.Errorf("session %q save requested version %d: %w",
			cp.SessionID, cp.Version, domain.ErrStaleCheckpoint)
	}

	return nil
}

// Load retrieves the checkpoint from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &cp, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(sessionID))
	pipe.Del(ctx, s.versionKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns active sessions from the index, lazily pruning entries
// whose TTL has passed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
