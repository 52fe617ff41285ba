package generic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/generic/store"
)

func takenSet(ids ...string) func(string) bool {
	set := map[string]bool{}
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2026-00042", generic.FormatNumber(generic.NamespaceFund, 2026, 42))
	assert.Equal(t, "Q-2026-0007", generic.FormatNumber(generic.NamespaceReceipt, 2026, 7))
	assert.Equal(t, "K-2026-00003", generic.FormatNumber(generic.NamespaceCashbook, 2026, 3))
}

func TestIsCaseNumber(t *testing.T) {
	assert.True(t, generic.IsCaseNumber("2026-00042"))
	for _, s := range []string{"", "2026-0042", "2026-000042", "26-00042", "2026_00042", " 2026-00042", "K-2026-00001"} {
		assert.False(t, generic.IsCaseNumber(s), s)
	}
}

func TestNext_SequentialPerYear(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()

	a, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, nil)
	require.NoError(t, err)
	b, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, nil)
	require.NoError(t, err)
	c, err := generic.Next(ctx, st, generic.NamespaceFund, 2027, nil)
	require.NoError(t, err)

	assert.Equal(t, "2026-00001", a)
	assert.Equal(t, "2026-00002", b)
	assert.Equal(t, "2027-00001", c, "new year restarts at 1")
}

func TestNext_NamespacesIndependent(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()

	_, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, nil)
	require.NoError(t, err)
	q, err := generic.Next(ctx, st, generic.NamespaceReceipt, 2026, nil)
	require.NoError(t, err)
	assert.Equal(t, "Q-2026-0001", q)
}

func TestNext_SkipsTakenNumbers(t *testing.T) {
	// GIVEN: numbers 1 and 2 already exist from an import
	ctx := context.Background()
	st := store.NewTxMemory()
	taken := takenSet("2026-00001", "2026-00002")

	// WHEN: the counter issues a number
	got, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, taken)
	require.NoError(t, err)

	// THEN: it skips past the collisions and persists only the accepted value
	assert.Equal(t, "2026-00003", got)
	next, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-00004", next)
}

func TestPeek_MatchesNext(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()
	taken := takenSet("2026-00001")

	peeked, err := generic.Peek(ctx, st, generic.NamespaceFund, 2026, taken)
	require.NoError(t, err)
	peekedAgain, err := generic.Peek(ctx, st, generic.NamespaceFund, 2026, taken)
	require.NoError(t, err)
	issued, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, taken)
	require.NoError(t, err)

	assert.Equal(t, peeked, peekedAgain, "peek does not advance")
	assert.Equal(t, peeked, issued)
}

func TestNext_ExhaustedWhenEverythingTaken(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()
	_, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, func(string) bool { return true })
	assert.ErrorIs(t, err, generic.ErrNumberExhausted)
}

func TestNext_CorruptCountersRestart(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()
	require.NoError(t, st.Set(ctx, generic.KeyCounters, []byte("[")))

	got, err := generic.Next(ctx, st, generic.NamespaceFund, 2026, takenSet("2026-00001"))
	require.NoError(t, err)
	assert.Equal(t, "2026-00002", got)
}
