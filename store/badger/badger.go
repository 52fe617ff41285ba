/*
Package badger provides an embedded BadgerDB implementation of generic.TxStore.

PURPOSE:
  A single-directory, pure-Go alternative to SQLite for deployments that
  do not want cgo. Each collection is one Badger key.

CONCURRENCY:
  WithTx runs fn inside db.Update. An in-process mutex serializes writers;
  badger.ErrConflict (another process or an unserialized writer committed
  first) is retried a bounded number of times.

GARBAGE COLLECTION:
  Collections are rewritten whole on every mutation, so old value log
  segments pile up. A background runner calls RunValueLogGC periodically
  for persistent databases.

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/sqlite/sqlite.go: Default persistent backend
*/
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
)

// Config holds BadgerDB options.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	InMemory   bool
	SyncWrites bool

	// Logger receives Badger's internal messages. Nil disables them.
	Logger logrus.FieldLogger

	// GCInterval is the value log GC period. Zero disables GC.
	GCInterval     time.Duration
	GCDiscardRatio float64

	// MaxRetries bounds WithTx retries on transaction conflicts.
	MaxRetries int
}

func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
		MaxRetries:     5,
	}
}

func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		MaxRetries: 5,
	}
}

// Store implements generic.TxStore on BadgerDB.
type Store struct {
	db         *badger.DB
	mu         sync.Mutex
	maxRetries int

	stopGC chan struct{}
	doneGC chan struct{}
	log    logrus.FieldLogger
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, maxRetries: max(cfg.MaxRetries, 1), log: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

// OpenInMemory opens a throwaway database (tests).
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.log != nil {
				s.log.WithError(err).Warn("badger value log GC failed")
			}
		}
	}
}

// =============================================================================
// KEY-VALUE STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		value, found, err = getTxn(txn, key)
		return err
	})
	return value, found, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.WithTx(ctx, func(tx generic.Store) error {
		return tx.Set(ctx, key, value)
	})
}

func getTxn(txn *badger.Txn, key string) ([]byte, bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx runs fn in a Badger read-write transaction.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&txnView{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("badger transaction retries exhausted: %w", err)
}

type txnView struct {
	txn *badger.Txn
}

func (v *txnView) Get(_ context.Context, key string) ([]byte, bool, error) {
	return getTxn(v.txn, key)
}

func (v *txnView) Set(_ context.Context, key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	if err := v.txn.Set([]byte(key), buf); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
