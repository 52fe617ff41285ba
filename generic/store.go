/*
store.go - Persistence contract for all LostTrack collections

PURPOSE:
  Defines the narrow key-value interface between the case engine and its
  storage medium. Every logical collection (records, drafts, audit log,
  counters, cash ledger) is one JSON blob under its own versioned key and
  is always read whole and written whole.

KEY INTERFACES:
  Store:   Get/Set of JSON blobs by key
  TxStore: Store + WithTx for exclusive read-modify-write sections

CONCURRENCY:
  Each operation follows read collection -> compute -> write collection.
  Two interleaved callers would lose writes (and break the ledger chain),
  so every mutation runs inside WithTx. Implementations decide how
  exclusivity is achieved (mutex, SQL transaction, Badger txn, Redis lock).

VERSIONED KEYS:
  Keys follow "<domain>.<collection>.v1". A schema change bumps the suffix
  and migrates non-destructively.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go:  SQLite kv table (default)
  - store/badger/badger.go:  Embedded BadgerDB
  - store/redis/redis.go:    Redis with a distributed lock

SEE ALSO:
  - ledger.go: Cash ledger persistence on top of Store
  - audit.go:  Audit log persistence on top of Store
*/
package generic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// KEYS
// =============================================================================

const StorageVersion = "v1"

const (
	KeyRecords  = "lostItems.records." + StorageVersion
	KeyDrafts   = "lostItems.drafts." + StorageVersion
	KeyAudit    = "lostItems.audit." + StorageVersion
	KeyCounters = "lostItems.counters." + StorageVersion
	KeyCashbook = "lostItems.cashbook." + StorageVersion
)

// =============================================================================
// STORE - Key-value contract
// =============================================================================

// Store persists JSON blobs by key. No atomicity across keys is implied.
type Store interface {
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// TxStore wraps Store with exclusive sections.
type TxStore interface {
	Store

	// WithTx executes fn with exclusive access to the store.
	// If fn returns error, writes made through the view are discarded
	// where the backend supports it.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// GetJSON decodes the value under key into dst. Missing keys leave dst
// untouched and report found=false. Undecodable values return an error
// wrapping ErrCorruptCollection.
func GetJSON(ctx context.Context, st Store, key string, dst any) (bool, error) {
	raw, found, err := st.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptCollection, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, st Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := st.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LoadList reads a whole collection. A missing key yields an empty list.
func LoadList[T any](ctx context.Context, st Store, key string) ([]T, error) {
	var list []T
	if _, err := GetJSON(ctx, st, key, &list); err != nil {
		return []T{}, err
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// LoadListLenient is LoadList for read paths: a corrupt value is logged
// and treated as empty. Writes use LoadList so they never replace it.
func LoadListLenient[T any](ctx context.Context, st Store, key string) ([]T, error) {
	list, err := LoadList[T](ctx, st, key)
	if errors.Is(err, ErrCorruptCollection) {
		logrus.WithField("key", key).WithError(err).Warn("stored collection unreadable, starting empty")
		return []T{}, nil
	}
	return list, err
}
