package lostitem

import (
	"context"
	"fmt"
	"strings"

	"github.com/Streuli81/LostTrack/generic"
)

// RewardRequest asks CreateReceipt to move money together with the receipt.
type RewardRequest struct {
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
}

// ReceiptInput describes a receipt to print.
//
// FinderRewardPayout is only allowed on FINDER_RECEIPT and needs a finder
// who requested a reward. OwnerReward is only allowed on OWNER_RECEIPT.
// Recipient defaults to the display name of the receiving party.
type ReceiptInput struct {
	Type               generic.ReceiptType `json:"type"`
	Recipient          string              `json:"recipient"`
	AmountCents        *int64              `json:"amountCents"`
	Notes              string              `json:"notes"`
	FinderRewardPayout *RewardRequest      `json:"finderRewardPayout"`
	OwnerReward        *RewardRequest      `json:"ownerReward"`
	Actor              string              `json:"actor"`
}

// CreateReceipt prints a receipt for case id. A requested payout or
// deposit is posted first, in the same transaction; the receipt then
// records the financing ledger entry.
func (s *Service) CreateReceipt(ctx context.Context, id string, in ReceiptInput) (*generic.CaseRecord, generic.Receipt, error) {
	var (
		out     *generic.CaseRecord
		receipt generic.Receipt
	)
	err := s.run(ctx, "createReceipt", func(tx *txn) error {
		_, current, err := tx.load(id)
		if err != nil {
			return err
		}
		recipient, err := checkReceipt(current, in)
		if err != nil {
			return err
		}
		actor := generic.ResolveActor(ctx, in.Actor)

		receipt = generic.Receipt{
			Type:        in.Type,
			Recipient:   recipient,
			AmountCents: in.AmountCents,
			Notes:       strings.TrimSpace(in.Notes),
			PrintedBy:   actor,
		}

		switch {
		case in.FinderRewardPayout != nil:
			_, entry, err := tx.payFinderReward(RewardInput{
				ID:          current.ID,
				AmountCents: in.FinderRewardPayout.AmountCents,
				Reason:      in.FinderRewardPayout.Reason,
				Actor:       actor,
			})
			if err != nil {
				return err
			}
			financed(&receipt, entry)
		case in.OwnerReward != nil:
			entry, err := tx.receiveOwnerReward(RewardInput{
				ID:          current.ID,
				AmountCents: in.OwnerReward.AmountCents,
				Reason:      in.OwnerReward.Reason,
				Actor:       actor,
			})
			if err != nil {
				return err
			}
			financed(&receipt, entry)
		}

		// reload: a payout has changed the stored case
		records, current, err := tx.load(id)
		if err != nil {
			return err
		}
		receipt.ID, err = generic.Next(ctx, tx, generic.NamespaceReceipt, s.year(), receiptTaken(records))
		if err != nil {
			return err
		}
		receipt.PrintedAt = s.now()

		next := current.Clone()
		next.Receipts = append(next.Receipts, receipt)
		saved, err := tx.save(records, next)
		if err != nil {
			return err
		}
		if err := tx.auditChange(generic.AuditReceiptPrinted, actor, current, saved, receipt); err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return nil, generic.Receipt{}, err
	}
	return out, receipt, nil
}

// checkReceipt applies the print guards and returns the recipient name.
func checkReceipt(rec *generic.CaseRecord, in ReceiptInput) (string, error) {
	if rec.CaseNumber == "" {
		return "", generic.ErrMissingCaseNumber
	}
	if in.AmountCents != nil && *in.AmountCents <= 0 {
		return "", &generic.AmountError{Input: fmt.Sprint(*in.AmountCents), Reason: "must be positive"}
	}

	var party *generic.Party
	switch in.Type {
	case generic.ReceiptFund:
		party = rec.Finder
	case generic.ReceiptOwner:
		party = firstNamed(rec.Owner, rec.Collector)
	case generic.ReceiptFinder:
		party = firstNamed(rec.Collector, rec.Finder)
	default:
		return "", fmt.Errorf("%w: %q", generic.ErrInvalidReceiptType, in.Type)
	}
	if party.DisplayName() == "" {
		return "", fmt.Errorf("%w: %s needs a named recipient", generic.ErrMissingParty, in.Type)
	}

	if in.FinderRewardPayout != nil {
		if in.Type != generic.ReceiptFinder {
			return "", fmt.Errorf("%w: payout needs %s", generic.ErrInvalidReceiptType, generic.ReceiptFinder)
		}
		if rec.Finder == nil || !rec.Finder.RewardRequested {
			return "", generic.ErrRewardNotRequested
		}
	}
	if in.OwnerReward != nil && in.Type != generic.ReceiptOwner {
		return "", fmt.Errorf("%w: owner reward needs %s", generic.ErrInvalidReceiptType, generic.ReceiptOwner)
	}

	if r := strings.TrimSpace(in.Recipient); r != "" {
		return r, nil
	}
	return party.DisplayName(), nil
}

func firstNamed(parties ...*generic.Party) *generic.Party {
	for _, p := range parties {
		if p.DisplayName() != "" {
			return p
		}
	}
	return nil
}

// financed links receipt to the ledger entry that paid for it.
func financed(receipt *generic.Receipt, entry generic.LedgerEntry) {
	cents := entry.AmountCents
	receipt.AmountCents = &cents
	receipt.Cashbook = &generic.ReceiptCashbook{
		LedgerID:    entry.ID,
		Type:        entry.Type,
		AmountCents: entry.AmountCents,
	}
	if receipt.Notes == "" {
		receipt.Notes = entry.Reason
	}
}
