/*
hashchain.go - Tamper-evident linking of cash ledger entries

PURPOSE:
  Each ledger entry stores the digest of its predecessor (PrevHash) and its
  own digest (Hash). Editing, deleting or reordering any stored entry
  breaks verification from that point on.

DIGEST:
  hash = hex(SHA-256(JCS(payload)))
  payload = every entry field except "hash", with "prevHash" set to the
  predecessor's hash (or Genesis for the first entry). JCS (RFC 8785)
  fixes key order and number formatting, so the digest does not depend on
  struct field order or encoder whitespace.

VERIFICATION:
  VerifyChain walks from Genesis and stops at the first failure:
    prevHash mismatch - entry does not point at its predecessor
    hash mismatch     - entry content differs from what was digested

CONCURRENCY:
  AppendEntry reads the last entry and writes the extended list. It must
  run inside TxStore.WithTx; two unserialized appends would fork the chain.

SEE ALSO:
  - ledger.go: Loading and totals
  - lostitem/cashbook.go: Posting and reward payout
*/
package generic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Genesis is the PrevHash of the first ledger entry.
const Genesis = "GENESIS"

const (
	ReasonPrevHashMismatch = "prevHash mismatch"
	ReasonHashMismatch     = "hash mismatch"
)

// =============================================================================
// DIGEST
// =============================================================================

// ComputeDigest returns the hex SHA-256 of the canonical payload of entry
// linked to prevHash. The entry's own Hash field is ignored.
func ComputeDigest(entry LedgerEntry, prevHash string) (string, error) {
	entry.PrevHash = prevHash
	entry.Hash = ""
	raw, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", entry.ID, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("digest %s: %w", entry.ID, err)
	}
	delete(payload, "hash")

	flat, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", entry.ID, err)
	}
	canon, err := jcs.Transform(flat)
	if err != nil {
		return "", fmt.Errorf("digest %s: canonicalize: %w", entry.ID, err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Link sets PrevHash and Hash of entry so it extends a chain ending in prevHash.
func Link(entry LedgerEntry, prevHash string) (LedgerEntry, error) {
	h, err := ComputeDigest(entry, prevHash)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.PrevHash = prevHash
	entry.Hash = h
	return entry, nil
}

// =============================================================================
// APPEND
// =============================================================================

// AppendEntry links entry to the current chain head and persists the
// extended ledger. A corrupt stored ledger is never overwritten.
func AppendEntry(ctx context.Context, st Store, entry LedgerEntry) (LedgerEntry, error) {
	if err := ValidateEntry(entry); err != nil {
		return LedgerEntry{}, err
	}
	entries, err := LoadLedger(ctx, st)
	if err != nil {
		return LedgerEntry{}, err
	}

	prev := Genesis
	if n := len(entries); n > 0 {
		prev = entries[n-1].Hash
	}
	linked, err := Link(entry, prev)
	if err != nil {
		return LedgerEntry{}, err
	}

	entries = append(entries, linked)
	if err := SetJSON(ctx, st, KeyCashbook, entries); err != nil {
		return LedgerEntry{}, err
	}
	return linked, nil
}

// =============================================================================
// VERIFY
// =============================================================================

// ChainReport is the outcome of VerifyChain. BadIndex is set when OK is false.
type ChainReport struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	BadIndex *int   `json:"badIndex,omitempty"`
	Count    int    `json:"count"`
}

// Err converts a failed report into a *ChainError, nil when OK.
func (r ChainReport) Err() error {
	if r.OK {
		return nil
	}
	idx := -1
	if r.BadIndex != nil {
		idx = *r.BadIndex
	}
	return &ChainError{Index: idx, Reason: r.Error}
}

// VerifyChain recomputes every link from Genesis. An empty ledger is valid.
func VerifyChain(entries []LedgerEntry) ChainReport {
	prev := Genesis
	for i, e := range entries {
		if e.PrevHash != prev {
			return failAt(i, ReasonPrevHashMismatch, len(entries))
		}
		h, err := ComputeDigest(e, prev)
		if err != nil || h != e.Hash {
			return failAt(i, ReasonHashMismatch, len(entries))
		}
		prev = e.Hash
	}
	return ChainReport{OK: true, Count: len(entries)}
}

func failAt(i int, reason string, count int) ChainReport {
	return ChainReport{OK: false, Error: reason, BadIndex: &i, Count: count}
}
