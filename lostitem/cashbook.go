/*
cashbook.go - Cash ledger postings and the finder reward lock

PURPOSE:
  Posts cash movements to the hash-chained ledger (generic/hashchain.go)
  and ties them to cases. Every posting writes a CASHBOOK_POSTED audit
  entry; reward operations add their own event on top.

DOUBLE PAYMENT GUARD:
  PayFinderReward fails with *generic.DoublePaymentError while
  finderRewardPayout.paid is set, before anything is posted. The OUT
  posting and setting the lock happen in the same store transaction, so a
  second payout can never observe a posted entry without the lock.

SNAPSHOTS:
  Label, description and case number are copied into the entry at posting
  time. Editing the case later does not change ledger text.

SEE ALSO:
  - generic/ledger.go: Loading, totals, ranges
  - receipts.go: Payouts requested together with a receipt
*/
package lostitem

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
)

// DefaultPayoutReason is used when a finder reward payout gives no reason.
const DefaultPayoutReason = "Finderlohn-Abholung"

// DefaultDepositReason is used when an owner reward deposit gives no reason.
const DefaultDepositReason = "Finderlohn-Einzahlung Eigentümer"

// PostInput is a manual ledger posting. CaseID is optional; without it the
// entry is a general cash movement of the office.
type PostInput struct {
	Type        generic.EntryType   `json:"type"`
	AmountCents int64               `json:"amountCents"`
	CaseID      string              `json:"caseId"`
	Reason      string              `json:"reason"`
	CaseWorker  *generic.CaseWorker `json:"caseWorker"`
	Actor       string              `json:"actor"`
}

// RewardInput is a finder reward payout or an owner reward deposit.
type RewardInput struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
	Actor       string `json:"actor"`
}

// RewardDetail is the audit detail of reward events.
type RewardDetail struct {
	LedgerID    string `json:"ledgerId"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
}

// =============================================================================
// POSTING
// =============================================================================

// PostEntry appends one entry to the ledger.
func (s *Service) PostEntry(ctx context.Context, in PostInput) (generic.LedgerEntry, error) {
	var out generic.LedgerEntry
	err := s.run(ctx, "postEntry", func(tx *txn) error {
		var rec *generic.CaseRecord
		if strings.TrimSpace(in.CaseID) != "" {
			_, current, err := tx.load(in.CaseID)
			if err != nil {
				return err
			}
			rec = current
		}
		entry, err := tx.post(in, rec)
		out = entry
		return err
	})
	return out, err
}

// post builds the entry, takes the next K-number and appends it.
func (tx *txn) post(in PostInput, rec *generic.CaseRecord) (generic.LedgerEntry, error) {
	ctx, s := tx.ctx, tx.svc
	if in.Type != generic.EntryIn && in.Type != generic.EntryOut {
		return generic.LedgerEntry{}, fmt.Errorf("%w: %q", generic.ErrInvalidEntryType, in.Type)
	}
	if in.AmountCents < 0 {
		return generic.LedgerEntry{}, &generic.AmountError{Input: fmt.Sprint(in.AmountCents), Reason: "negative"}
	}
	if in.AmountCents > generic.MaxCents {
		return generic.LedgerEntry{}, &generic.AmountError{Input: fmt.Sprint(in.AmountCents), Reason: "out of range"}
	}

	// strict load: a corrupt ledger must fail before the counter moves
	ledger, err := generic.LoadLedger(ctx, tx)
	if err != nil {
		return generic.LedgerEntry{}, err
	}
	id, err := generic.Next(ctx, tx, generic.NamespaceCashbook, s.year(), func(candidate string) bool {
		_, found := generic.FindEntry(ledger, candidate)
		return found
	})
	if err != nil {
		return generic.LedgerEntry{}, err
	}

	entry := generic.LedgerEntry{
		ID:          id,
		CreatedAt:   s.now(),
		Type:        in.Type,
		AmountCents: in.AmountCents,
		Reason:      strings.TrimSpace(in.Reason),
		Actor:       generic.ResolveActor(ctx, in.Actor),
	}
	if rec != nil {
		entry.FundID = rec.ID
		entry.FundNo = rec.CaseNumber
		entry.Label = rec.Item.Label()
		entry.Description = rec.Item.Description
		entry.CaseWorker = rec.CaseWorker
	}
	if in.CaseWorker != nil {
		entry.CaseWorker = *in.CaseWorker
	}

	linked, err := generic.AppendEntry(ctx, tx, entry)
	if err != nil {
		return generic.LedgerEntry{}, err
	}
	tx.postings = append(tx.postings, linked)

	if err := tx.audit(generic.AuditEntry{
		Type:     generic.AuditCashbookPosted,
		FundNo:   linked.FundNo,
		RecordID: linked.FundID,
		Actor:    linked.Actor,
		Snapshot: generic.AuditSnapshot{Detail: linked},
	}); err != nil {
		return generic.LedgerEntry{}, err
	}
	return linked, nil
}

// =============================================================================
// REWARDS
// =============================================================================

// PayFinderReward pays the finder reward of case in.ID as an OUT entry and
// sets the payout lock.
func (s *Service) PayFinderReward(ctx context.Context, in RewardInput) (*generic.CaseRecord, generic.LedgerEntry, error) {
	var (
		out   *generic.CaseRecord
		entry generic.LedgerEntry
	)
	err := s.run(ctx, "payFinderReward", func(tx *txn) error {
		rec, e, err := tx.payFinderReward(in)
		out, entry = rec, e
		return err
	})
	if err != nil {
		return nil, generic.LedgerEntry{}, err
	}
	return out, entry, nil
}

func (tx *txn) payFinderReward(in RewardInput) (*generic.CaseRecord, generic.LedgerEntry, error) {
	records, current, err := tx.load(in.ID)
	if err != nil {
		return nil, generic.LedgerEntry{}, err
	}
	if current.RewardPaid() {
		return nil, generic.LedgerEntry{}, &generic.DoublePaymentError{
			CaseID:   current.ID,
			FundNo:   current.CaseNumber,
			LedgerID: current.FinderRewardPayout.LedgerID,
			Existing: *current.FinderRewardPayout,
		}
	}
	if in.AmountCents <= 0 {
		return nil, generic.LedgerEntry{}, &generic.AmountError{Input: fmt.Sprint(in.AmountCents), Reason: "must be positive"}
	}

	actor := generic.ResolveActor(tx.ctx, in.Actor)
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = DefaultPayoutReason
	}
	entry, err := tx.post(PostInput{
		Type:        generic.EntryOut,
		AmountCents: in.AmountCents,
		Reason:      reason,
		Actor:       actor,
	}, current)
	if err != nil {
		return nil, generic.LedgerEntry{}, err
	}

	next := current.Clone()
	next.FinderRewardPayout = &generic.Payout{
		Paid:        true,
		PaidAt:      entry.CreatedAt,
		AmountCents: entry.AmountCents,
		LedgerID:    entry.ID,
		Reason:      reason,
		Actor:       actor,
	}
	saved, err := tx.save(records, next)
	if err != nil {
		return nil, generic.LedgerEntry{}, err
	}
	detail := RewardDetail{LedgerID: entry.ID, AmountCents: entry.AmountCents, Reason: reason}
	if err := tx.auditChange(generic.AuditFinderRewardPaid, actor, current, saved, detail); err != nil {
		return nil, generic.LedgerEntry{}, err
	}
	return saved, entry, nil
}

// ReceiveOwnerReward books a reward handed over by the owner as an IN
// entry. The case itself is not changed.
func (s *Service) ReceiveOwnerReward(ctx context.Context, in RewardInput) (generic.LedgerEntry, error) {
	var entry generic.LedgerEntry
	err := s.run(ctx, "receiveOwnerReward", func(tx *txn) error {
		e, err := tx.receiveOwnerReward(in)
		entry = e
		return err
	})
	return entry, err
}

func (tx *txn) receiveOwnerReward(in RewardInput) (generic.LedgerEntry, error) {
	_, current, err := tx.load(in.ID)
	if err != nil {
		return generic.LedgerEntry{}, err
	}
	if in.AmountCents <= 0 {
		return generic.LedgerEntry{}, &generic.AmountError{Input: fmt.Sprint(in.AmountCents), Reason: "must be positive"}
	}
	actor := generic.ResolveActor(tx.ctx, in.Actor)
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = DefaultDepositReason
	}
	entry, err := tx.post(PostInput{
		Type:        generic.EntryIn,
		AmountCents: in.AmountCents,
		Reason:      reason,
		Actor:       actor,
	}, current)
	if err != nil {
		return generic.LedgerEntry{}, err
	}
	err = tx.audit(generic.AuditEntry{
		Type:     generic.AuditOwnerRewardIn,
		FundNo:   current.CaseNumber,
		RecordID: current.ID,
		Actor:    actor,
		Snapshot: generic.AuditSnapshot{
			After:  slim(current),
			Detail: RewardDetail{LedgerID: entry.ID, AmountCents: entry.AmountCents, Reason: reason},
		},
	})
	return entry, err
}

// =============================================================================
// READING
// =============================================================================

// Entries returns the ledger in chain order.
func (s *Service) Entries(ctx context.Context) ([]generic.LedgerEntry, error) {
	return generic.LoadLedger(ctx, s.store)
}

// Totals sums the ledger between from and to (inclusive). Bounds are
// YYYY-MM-DD (whole day in the configured zone) or RFC 3339; empty is open.
func (s *Service) Totals(ctx context.Context, from, to string) (generic.Totals, error) {
	r, err := generic.ParseRange(from, to, s.loc)
	if err != nil {
		return generic.Totals{}, err
	}
	entries, err := generic.LoadLedger(ctx, s.store)
	if err != nil {
		return generic.Totals{}, err
	}
	return generic.ComputeTotals(entries, r), nil
}

// VerifyChain checks the stored ledger from genesis.
func (s *Service) VerifyChain(ctx context.Context) (generic.ChainReport, error) {
	entries, err := generic.LoadLedger(ctx, s.store)
	if err != nil {
		return generic.ChainReport{}, err
	}
	report := generic.VerifyChain(entries)
	s.metrics.ChainVerified(report.OK, report.Count)
	if !report.OK {
		s.log.WithFields(logrus.Fields{
			"op":       "verifyChain",
			"badIndex": *report.BadIndex,
			"reason":   report.Error,
		}).Warn("ledger chain broken")
	}
	return report, nil
}
