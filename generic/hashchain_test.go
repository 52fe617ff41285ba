package generic_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/generic/store"
)

func ledgerEntry(i int, typ generic.EntryType, cents int64) generic.LedgerEntry {
	return generic.LedgerEntry{
		ID:          fmt.Sprintf("K-2026-%05d", i),
		CreatedAt:   time.Date(2026, time.March, 1, 10, 0, i, 0, time.UTC),
		Type:        typ,
		AmountCents: cents,
		FundID:      "case-1",
		FundNo:      "2026-00001",
		Label:       "Portemonnaie",
		Reason:      "Finderlohn",
		Actor:       "tester",
	}
}

func buildChain(t *testing.T, amounts ...int64) []generic.LedgerEntry {
	t.Helper()
	ctx := context.Background()
	st := store.NewTxMemory()
	for i, a := range amounts {
		typ := generic.EntryIn
		if i%2 == 1 {
			typ = generic.EntryOut
		}
		_, err := generic.AppendEntry(ctx, st, ledgerEntry(i+1, typ, a))
		require.NoError(t, err)
	}
	entries, err := generic.LoadLedger(ctx, st)
	require.NoError(t, err)
	return entries
}

func TestAppendEntry_LinksToPredecessor(t *testing.T) {
	entries := buildChain(t, 1000, 500, 250)

	require.Len(t, entries, 3)
	assert.Equal(t, generic.Genesis, entries[0].PrevHash)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)
	assert.Equal(t, entries[1].Hash, entries[2].PrevHash)
	assert.Len(t, entries[0].Hash, 64)
}

func TestComputeDigest_IgnoresStoredHash(t *testing.T) {
	e := ledgerEntry(1, generic.EntryIn, 100)
	h1, err := generic.ComputeDigest(e, generic.Genesis)
	require.NoError(t, err)

	e.Hash = "something-else"
	h2, err := generic.ComputeDigest(e, generic.Genesis)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestComputeDigest_DependsOnPrevHash(t *testing.T) {
	e := ledgerEntry(1, generic.EntryIn, 100)
	h1, _ := generic.ComputeDigest(e, generic.Genesis)
	h2, _ := generic.ComputeDigest(e, "abc")
	assert.NotEqual(t, h1, h2)
}

func TestVerifyChain_EmptyIsOK(t *testing.T) {
	report := generic.VerifyChain(nil)
	assert.True(t, report.OK)
	assert.Nil(t, report.BadIndex)
	assert.NoError(t, report.Err())
}

func TestVerifyChain_DetectsContentTamper(t *testing.T) {
	// GIVEN: a valid chain of four entries
	entries := buildChain(t, 1000, 500, 250, 125)
	require.True(t, generic.VerifyChain(entries).OK)

	// WHEN: the amount of entry 2 is edited in place
	entries[2].AmountCents = 99999

	// THEN: verification fails at exactly that entry
	report := generic.VerifyChain(entries)
	assert.False(t, report.OK)
	require.NotNil(t, report.BadIndex)
	assert.Equal(t, 2, *report.BadIndex)
	assert.Equal(t, generic.ReasonHashMismatch, report.Error)

	var chainErr *generic.ChainError
	require.ErrorAs(t, report.Err(), &chainErr)
	assert.Equal(t, 2, chainErr.Index)
}

func TestVerifyChain_DetectsDeletion(t *testing.T) {
	entries := buildChain(t, 1000, 500, 250)
	tampered := append([]generic.LedgerEntry{entries[0]}, entries[2])

	report := generic.VerifyChain(tampered)
	assert.False(t, report.OK)
	assert.Equal(t, 1, *report.BadIndex)
	assert.Equal(t, generic.ReasonPrevHashMismatch, report.Error)
}

func TestVerifyChain_DetectsReorder(t *testing.T) {
	entries := buildChain(t, 1000, 500)
	report := generic.VerifyChain([]generic.LedgerEntry{entries[1], entries[0]})
	assert.False(t, report.OK)
	assert.Equal(t, 0, *report.BadIndex)
}

func TestAppendEntry_RejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()

	_, err := generic.AppendEntry(ctx, st, ledgerEntry(1, "SIDEWAYS", 100))
	assert.ErrorIs(t, err, generic.ErrInvalidEntryType)

	_, err = generic.AppendEntry(ctx, st, ledgerEntry(1, generic.EntryIn, -1))
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	entries, err := generic.LoadLedger(ctx, st)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendEntry_RejectsAmountAboveMaxCents(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()

	// GIVEN an amount past 2^53, where float64 loses whole cents
	_, err := generic.AppendEntry(ctx, st, ledgerEntry(1, generic.EntryIn, generic.MaxCents+1))

	// THEN the ledger refuses it
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)
	assert.ErrorContains(t, err, "out of range")

	_, err = generic.AppendEntry(ctx, st, ledgerEntry(1, generic.EntryIn, generic.MaxCents))
	require.NoError(t, err, "the boundary itself is accepted")

	entries, err := generic.LoadLedger(ctx, st)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendEntry_CorruptLedgerNotOverwritten(t *testing.T) {
	ctx := context.Background()
	st := store.NewTxMemory()
	require.NoError(t, st.Set(ctx, generic.KeyCashbook, []byte("{not json")))

	_, err := generic.AppendEntry(ctx, st, ledgerEntry(1, generic.EntryIn, 100))
	assert.ErrorIs(t, err, generic.ErrCorruptCollection)

	raw, _, _ := st.Get(ctx, generic.KeyCashbook)
	assert.Equal(t, "{not json", string(raw))
}

func TestAppendEntry_ZeroAmountAllowed(t *testing.T) {
	entries := buildChain(t, 0)
	assert.True(t, generic.VerifyChain(entries).OK)
}

// =============================================================================
// TOTALS
// =============================================================================

func TestComputeTotals_InclusiveBounds(t *testing.T) {
	entries := []generic.LedgerEntry{
		{Type: generic.EntryIn, AmountCents: 1000, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Type: generic.EntryOut, AmountCents: 300, CreatedAt: time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)},
		{Type: generic.EntryIn, AmountCents: 50, CreatedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	}

	r, err := generic.ParseRange("2026-03-01", "2026-03-02", time.UTC)
	require.NoError(t, err)
	totals := generic.ComputeTotals(entries, r)
	assert.Equal(t, int64(1000), totals.InCents)
	assert.Equal(t, int64(300), totals.OutCents)
	assert.Equal(t, int64(700), totals.BalanceCents)
	assert.Equal(t, 2, totals.Count)

	all := generic.ComputeTotals(entries, generic.Range{})
	assert.Equal(t, int64(750), all.BalanceCents)
	assert.Equal(t, 3, all.Count)
}

func TestParseRange_InstantBounds(t *testing.T) {
	r, err := generic.ParseRange("2026-03-01T12:00:00Z", "", time.UTC)
	require.NoError(t, err)
	assert.True(t, r.To.IsZero())
	assert.False(t, r.Contains(time.Date(2026, 3, 1, 11, 59, 59, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, err = generic.ParseRange("gestern", "", time.UTC)
	assert.ErrorIs(t, err, generic.ErrInvalidTimestamp)
}
