// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/Streuli81/LostTrack/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value)
	return nil
}

func (m *Memory) getLocked(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) setLocked(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Snapshot current state
	snapshot := tm.snapshot()

	// Create a transactional view
	txStore := &txMemoryView{parent: tm}

	if err := fn(txStore); err != nil {
		tm.data = snapshot
		return err
	}

	// Commit (already done via direct writes)
	return nil
}

func (tm *TxMemory) snapshot() map[string][]byte {
	cp := make(map[string][]byte, len(tm.data))
	for k, v := range tm.data {
		cp[k] = v
	}
	return cp
}

// txMemoryView is a Store view used inside a transaction.
// Operations bypass locking since the parent lock is already held.
type txMemoryView struct {
	parent *TxMemory
}

func (v *txMemoryView) Get(_ context.Context, key string) ([]byte, bool, error) {
	return v.parent.getLocked(key)
}

func (v *txMemoryView) Set(_ context.Context, key string, value []byte) error {
	v.parent.setLocked(key, value)
	return nil
}
