/*
Package redis provides a Redis implementation of generic.TxStore.

PURPOSE:
  Lets several LostTrack processes share one store. Collections live under
  "<prefix><key>" as plain string values.

CONCURRENCY:
  WithTx obtains a distributed lock (bsm/redislock) for the whole
  read-compute-write section. Writes made inside the section are buffered
  and flushed in one MULTI/EXEC pipeline after fn succeeds, so a failing
  fn leaves Redis untouched.

LOCK LOSS:
  The lock has a TTL. A section running longer than the TTL could overlap
  with another writer, so the TTL is checked before flushing and the
  transaction fails if the lock is gone.

SEE ALSO:
  - generic/store.go: Interface definitions
*/
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
)

// ErrLockLost is returned when the store lock expired before commit.
var ErrLockLost = errors.New("redis store lock lost before commit")

type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces all keys, e.g. "losttrack:".
	Prefix string

	LockTTL   time.Duration
	LockRetry time.Duration
}

func DefaultConfig(addr string) Config {
	return Config{
		Addr:      addr,
		Prefix:    "losttrack:",
		LockTTL:   30 * time.Second,
		LockRetry: 50 * time.Millisecond,
	}
}

// Store implements generic.TxStore on Redis.
type Store struct {
	client *redis.Client
	locker *redislock.Client
	cfg    Config
	log    logrus.FieldLogger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.LockRetry <= 0 {
		cfg.LockRetry = 50 * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return &Store{
		client: client,
		locker: redislock.New(client),
		cfg:    cfg,
		log:    log.WithField("module", "store.redis"),
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.cfg.Prefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// WithTx runs fn while holding the store lock.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	lock, err := s.locker.Obtain(ctx, s.key("lock"), s.cfg.LockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(s.cfg.LockRetry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return fmt.Errorf("could not obtain store lock: %w", err)
	}
	if err != nil {
		return fmt.Errorf("obtain store lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && !errors.Is(rerr, redislock.ErrLockNotHeld) {
			s.log.WithError(rerr).Warn("release store lock")
		}
	}()

	view := &txView{parent: s, writes: map[string][]byte{}}
	if err := fn(view); err != nil {
		return err
	}
	if len(view.writes) == 0 {
		return nil
	}

	ttl, err := lock.TTL(ctx)
	if err != nil {
		return fmt.Errorf("check store lock: %w", err)
	}
	if ttl <= 0 {
		return ErrLockLost
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range view.writes {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txView buffers writes until WithTx commits.
type txView struct {
	parent *Store
	mu     sync.Mutex
	writes map[string][]byte
}

func (v *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v.mu.Lock()
	buffered, ok := v.writes[key]
	v.mu.Unlock()
	if ok {
		out := make([]byte, len(buffered))
		copy(out, buffered)
		return out, true, nil
	}
	return v.parent.Get(ctx, key)
}

func (v *txView) Set(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	v.mu.Lock()
	v.writes[key] = buf
	v.mu.Unlock()
	return nil
}
