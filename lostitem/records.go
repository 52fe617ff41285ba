package lostitem

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/validation"
)

// =============================================================================
// COMMIT - New case (or repeated submission of the same case)
// =============================================================================

// Commit validates input in COMMIT mode and stores it as a case.
//
// Idempotency: committing an id that already exists is a resubmission of
// that case. It keeps the case number, creation time, receipts, payout
// lock and investigation steps; parties and status omitted from input keep
// their stored value, as in Update. A new case gets a number from the FUND
// counter unless input already carries a well-formed one that no other
// case uses. The matching draft is removed.
func (s *Service) Commit(ctx context.Context, input *generic.CaseRecord) (*generic.CaseRecord, error) {
	id := ""
	if input != nil {
		id = strings.TrimSpace(input.ID)
	}
	if id == "" {
		id = uuid.NewString()
	}

	var out *generic.CaseRecord
	err := s.run(ctx, "commit", func(tx *txn) error {
		records, err := loadRecords(ctx, tx)
		if err != nil {
			return err
		}
		existing, err := findRecord(records, id)
		if err != nil && !generic.IsNotFound(err) {
			return err
		}

		candidate := input.Clone()
		if candidate == nil {
			candidate = &generic.CaseRecord{}
		}
		if existing != nil {
			keepOmitted(candidate, existing)
			// steps change only through Add/DeleteInvestigationStep
			candidate.InvestigationSteps = existing.InvestigationSteps
		}

		res := validation.Validate(candidate, validation.ModeCommit)
		if !res.OK {
			return res.Err()
		}
		rec := res.Value
		rec.ID = id

		switch {
		case existing != nil && existing.CaseNumber != "":
			rec.CaseNumber = existing.CaseNumber
		case generic.IsCaseNumber(rec.CaseNumber) && !caseNumberTaken(records, rec.ID)(rec.CaseNumber):
			// keep the number the caller reserved
		default:
			rec.CaseNumber, err = generic.Next(ctx, tx, generic.NamespaceFund, s.year(), caseNumberTaken(records, rec.ID))
			if err != nil {
				return err
			}
		}
		tx.fundNo = rec.CaseNumber

		if existing != nil {
			rec.CreatedAt = existing.CreatedAt
			rec.Receipts = existing.Receipts
			rec.FinderRewardPayout = existing.FinderRewardPayout
		} else {
			rec.CreatedAt = s.now()
			rec.Receipts = []generic.Receipt{}
			rec.FinderRewardPayout = nil
		}

		saved, err := tx.save(records, rec)
		if err != nil {
			return err
		}
		if err := removeDraft(ctx, tx, saved.ID); err != nil {
			return err
		}
		if existing != nil {
			if err := tx.auditChange(generic.AuditItemCommitted, "", existing, saved, nil); err != nil {
				return err
			}
			out = saved
			return nil
		}
		// a new case has no "before", so no diff either
		if err := tx.audit(generic.AuditEntry{
			Type:     generic.AuditItemCommitted,
			FundNo:   saved.CaseNumber,
			RecordID: saved.ID,
			Snapshot: generic.AuditSnapshot{After: slim(saved)},
		}); err != nil {
			return err
		}
		out = saved
		return nil
	})
	return out, err
}

// keepOmitted fills the fields next leaves empty from current: a blank
// status, a nil step list and nil parties.
func keepOmitted(next, current *generic.CaseRecord) {
	if strings.TrimSpace(string(next.Status)) == "" {
		next.Status = current.Status
	}
	if next.InvestigationSteps == nil {
		next.InvestigationSteps = current.InvestigationSteps
	}
	if next.Finder == nil {
		next.Finder = current.Finder
	}
	if next.Owner == nil {
		next.Owner = current.Owner
	}
	if next.Collector == nil {
		next.Collector = current.Collector
	}
}

// PeekCaseNumber returns the case number the next Commit of a new case
// would receive. Nothing is reserved.
func (s *Service) PeekCaseNumber(ctx context.Context) (string, error) {
	records, err := readRecords(ctx, s.store)
	if err != nil {
		return "", err
	}
	return generic.Peek(ctx, s.store, generic.NamespaceFund, s.year(), caseNumberTaken(records, ""))
}

// =============================================================================
// UPDATE - Edit an existing case
// =============================================================================

// Update validates input in COMMIT mode and replaces the stored case.
//
// Preserved from the stored record regardless of input: case number,
// creation time, receipts and the payout lock. Status, investigation
// steps and parties omitted from input keep their stored value.
func (s *Service) Update(ctx context.Context, input *generic.CaseRecord) (*generic.CaseRecord, error) {
	if input == nil {
		return nil, generic.ErrMissingID
	}

	var out *generic.CaseRecord
	err := s.run(ctx, "update", func(tx *txn) error {
		records, current, err := tx.load(input.ID)
		if err != nil {
			return err
		}

		next := input.Clone()
		next.ID = current.ID
		next.CaseNumber = current.CaseNumber
		next.CreatedAt = current.CreatedAt
		next.Receipts = current.Receipts
		next.FinderRewardPayout = current.FinderRewardPayout
		keepOmitted(next, current)

		res := validation.Validate(next, validation.ModeCommit)
		if !res.OK {
			return res.Err()
		}
		saved, err := tx.save(records, res.Value)
		if err != nil {
			return err
		}
		if err := tx.auditChange(generic.AuditItemUpdated, "", current, saved, nil); err != nil {
			return err
		}
		out = saved
		return nil
	})
	return out, err
}

// =============================================================================
// STATUS
// =============================================================================

// StatusChange is the audit detail of STATUS_CHANGED.
type StatusChange struct {
	From generic.Status `json:"from"`
	To   generic.Status `json:"to"`
}

// ChangeStatus sets the status of case id. Any known status may follow any
// other; unknown values fail with ErrInvalidStatus.
func (s *Service) ChangeStatus(ctx context.Context, id, status string) (*generic.CaseRecord, error) {
	var out *generic.CaseRecord
	err := s.run(ctx, "changeStatus", func(tx *txn) error {
		st, ok := generic.ParseStatus(status)
		if !ok {
			return fmt.Errorf("%w: %q", generic.ErrInvalidStatus, status)
		}
		rec, err := tx.mutate(id, generic.AuditStatusChanged, "", func(rec *generic.CaseRecord) (any, error) {
			change := StatusChange{From: rec.Status, To: st}
			rec.Status = st
			return change, nil
		})
		out = rec
		return err
	})
	return out, err
}
