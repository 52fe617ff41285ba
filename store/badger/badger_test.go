package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/generic/store/storetest"
	"github.com/Streuli81/LostTrack/store/badger"
)

func TestBadger_Conformance(t *testing.T) {
	st, err := badger.OpenInMemory()
	require.NoError(t, err)
	defer st.Close()

	storetest.Run(t, st, storetest.Options{Rollback: true})
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := badger.DefaultConfig(dir)
	cfg.GCInterval = 0
	st, err := badger.Open(cfg)
	require.NoError(t, err)
	err = st.WithTx(ctx, func(tx generic.Store) error {
		_, err := generic.Next(ctx, tx, generic.NamespaceCashbook, 2026, nil)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := badger.Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	next, err := generic.Peek(ctx, reopened, generic.NamespaceCashbook, 2026, nil)
	require.NoError(t, err)
	assert.Equal(t, "K-2026-00002", next)
}

func TestBadger_RequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.Error(t, err)
}
