// Package storetest holds the behavior every generic.TxStore must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
)

// Options describe backend capabilities.
type Options struct {
	// Rollback is true when writes inside a failed WithTx are discarded.
	Rollback bool
}

var errAbort = errors.New("abort")

// Run exercises st. The store must start empty.
func Run(t *testing.T, st generic.TxStore, opts Options) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, found, err := st.Get(ctx, "storetest.missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, st.Set(ctx, "storetest.a", []byte(`{"v":1}`)))
		raw, found, err := st.Get(ctx, "storetest.a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.JSONEq(t, `{"v":1}`, string(raw))

		require.NoError(t, st.Set(ctx, "storetest.a", []byte(`{"v":2}`)))
		raw, _, err = st.Get(ctx, "storetest.a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(raw))
	})

	t.Run("tx commit", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx generic.Store) error {
			if err := tx.Set(ctx, "storetest.tx", []byte(`"committed"`)); err != nil {
				return err
			}
			raw, found, err := tx.Get(ctx, "storetest.tx")
			if err != nil {
				return err
			}
			assert.True(t, found, "writes are visible inside the transaction")
			assert.Equal(t, `"committed"`, string(raw))
			return nil
		})
		require.NoError(t, err)

		raw, found, err := st.Get(ctx, "storetest.tx")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `"committed"`, string(raw))
	})

	t.Run("tx error", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx generic.Store) error {
			if err := tx.Set(ctx, "storetest.rollback", []byte(`"lost"`)); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		if !opts.Rollback {
			return
		}
		_, found, err := st.Get(ctx, "storetest.rollback")
		require.NoError(t, err)
		assert.False(t, found, "failed transaction must not persist writes")
	})

	t.Run("tx serializes counters", func(t *testing.T) {
		const workers = 12
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[string]bool{}
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := st.WithTx(ctx, func(tx generic.Store) error {
					id, err := generic.Next(ctx, tx, generic.NamespaceFund, 2026, nil)
					if err != nil {
						return err
					}
					mu.Lock()
					ids[id] = true
					mu.Unlock()
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Len(t, ids, workers, "every transaction gets a distinct number")
	})
}
