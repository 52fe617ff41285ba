/*
ledger.go - Append-only cash ledger ("Kassenbuch")

PURPOSE:
  The ledger is the immutable source of truth for every cash movement of
  the lost-and-found office: finder rewards paid out, owner rewards paid
  in. The balance is always computed by replaying entries; there is no
  stored balance that could drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No update, no delete. EVER.
  2. CHAINED: Every entry carries the hash of its predecessor (hashchain.go)
  3. SNAPSHOTTED: Label, description and case number are copied from the
     case at posting time; later case edits do not change the ledger
  4. INTEGER MONEY: AmountCents is minor units, never negative

CORRECTIONS:
  A wrong posting is never edited. Post the opposite movement (OUT for a
  wrong IN) with a reason; both entries remain and the chain stays valid.

CORRUPT DATA:
  Unlike other collections, an unreadable ledger is an error rather than
  an empty list. Restarting from empty would silently drop history and
  start a second chain at Genesis.

SEE ALSO:
  - hashchain.go: Digest, linking and verification
  - lostitem/cashbook.go: Posting and the finder reward lock
*/
package generic

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// LOADING
// =============================================================================

// LoadLedger returns all entries in chain order.
func LoadLedger(ctx context.Context, st Store) ([]LedgerEntry, error) {
	entries, err := LoadList[LedgerEntry](ctx, st, KeyCashbook)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ValidateEntry checks the fields AppendEntry depends on.
func ValidateEntry(e LedgerEntry) error {
	if e.Type != EntryIn && e.Type != EntryOut {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, e.Type)
	}
	if e.AmountCents < 0 {
		return &AmountError{Input: fmt.Sprint(e.AmountCents), Reason: "negative"}
	}
	if e.AmountCents > MaxCents {
		return &AmountError{Input: fmt.Sprint(e.AmountCents), Reason: "out of range"}
	}
	return nil
}

// FindEntry returns the entry with id.
func FindEntry(entries []LedgerEntry, id string) (LedgerEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return LedgerEntry{}, false
}

// =============================================================================
// TOTALS - Derived values, computed from entries
// =============================================================================

// Range bounds a totals query. Zero From or To means unbounded on that side.
// Both bounds are inclusive.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies inside r.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// ParseRange builds a Range from user input bounds (see ParseBound).
func ParseRange(from, to string, loc *time.Location) (Range, error) {
	var r Range
	f, ok, err := ParseBound(from, false, loc)
	if err != nil {
		return Range{}, err
	}
	if ok {
		r.From = f
	}
	t, ok, err := ParseBound(to, true, loc)
	if err != nil {
		return Range{}, err
	}
	if ok {
		r.To = t
	}
	return r, nil
}

type Totals struct {
	InCents      int64 `json:"inCents"`
	OutCents     int64 `json:"outCents"`
	BalanceCents int64 `json:"balanceCents"`
	Count        int   `json:"count"`
}

// ComputeTotals sums the entries whose CreatedAt lies inside r.
func ComputeTotals(entries []LedgerEntry, r Range) Totals {
	var t Totals
	for _, e := range entries {
		if !r.Contains(e.CreatedAt) {
			continue
		}
		switch e.Type {
		case EntryIn:
			t.InCents += e.AmountCents
		case EntryOut:
			t.OutCents += e.AmountCents
		default:
			continue
		}
		t.Count++
	}
	t.BalanceCents = t.InCents - t.OutCents
	return t
}
